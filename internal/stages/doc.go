// Package stages implements the assistant's pipeline stages.
//
// Stages run in the order returned by Default:
//
//	router -> retriever -> ranker -> answerer -> uncertainty -> validator -> auditor -> supervisor
//
// Every stage appends exactly one audit record named after itself and
// reports only the State fields it changed.
package stages

// Stage names, also used as audit record nodes.
const (
	NameRouter      = "router"
	NameRetriever   = "retriever"
	NameRanker      = "ranker"
	NameAnswerer    = "answerer"
	NameUncertainty = "uncertainty"
	NameValidator   = "validator"
	NameAuditor     = "auditor"
	NameSupervisor  = "supervisor"
)

// Order lists the stage names in execution order.
var Order = []string{
	NameRouter,
	NameRetriever,
	NameRanker,
	NameAnswerer,
	NameUncertainty,
	NameValidator,
	NameAuditor,
	NameSupervisor,
}
