package safehttp

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckIP(t *testing.T) {
	tests := []struct {
		ip      string
		allowed bool
	}{
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"192.168.0.10", false},
		{"172.16.5.4", false},
		{"169.254.169.254", false},
		{"0.0.0.0", false},
		{"93.184.216.34", true},
		{"2606:4700::1111", true},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			err := CheckIP(net.ParseIP(tt.ip))
			if tt.allowed && err != nil {
				t.Errorf("CheckIP(%s) error = %v, want allowed", tt.ip, err)
			}
			if !tt.allowed && !errors.Is(err, ErrPrivateAddress) {
				t.Errorf("CheckIP(%s) error = %v, want ErrPrivateAddress", tt.ip, err)
			}
		})
	}
	if err := CheckIP(nil); err == nil {
		t.Error("CheckIP(nil) succeeded")
	}
}

func TestClientRejectsLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewClient(time.Second).Get(srv.URL)
	if !errors.Is(err, ErrPrivateAddress) {
		t.Fatalf("Get() error = %v, want ErrPrivateAddress", err)
	}
}
