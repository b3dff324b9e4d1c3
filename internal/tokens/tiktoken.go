package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// TiktokenCounter counts draft tokens with a BPE encoding chosen per model.
// Anything it does not recognise, including the local stub model, is counted
// with cl100k_base.
type TiktokenCounter struct {
	codecs sync.Map // tokenizer.Encoding -> tokenizer.Codec
}

func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

func (c *TiktokenCounter) codec(model string) (tokenizer.Codec, error) {
	enc := encodingFor(model)
	if v, ok := c.codecs.Load(enc); ok {
		return v.(tokenizer.Codec), nil
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("tokens: load %s: %w", enc, err)
	}
	v, _ := c.codecs.LoadOrStore(enc, codec)
	return v.(tokenizer.Codec), nil
}

// o200kPrefixes are model families tokenised with o200k_base.
var o200kPrefixes = []string{"gpt-5", "gpt-4.1", "gpt-4o", "o1", "o3", "o4"}

func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	for _, p := range o200kPrefixes {
		if strings.HasPrefix(model, p) {
			return tokenizer.O200kBase
		}
	}
	return tokenizer.Cl100kBase
}

// SupportsModel is always true; see TiktokenCounter.
func (c *TiktokenCounter) SupportsModel(string) bool { return true }

// CountText returns the number of tokens text encodes to.
func (c *TiktokenCounter) CountText(model, text string) (int, error) {
	codec, err := c.codec(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("tokens: encode: %w", err)
	}
	return len(ids), nil
}
