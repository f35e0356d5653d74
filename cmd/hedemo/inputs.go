package main

import (
	"fmt"
	"strconv"
	"strings"
)

func parseInputs(votes, salaries, spectrum string) (in inputs, err error) {
	if in.votes, err = parseInts(votes); err != nil {
		return in, fmt.Errorf("votes: %w", err)
	}
	if in.salaries, err = parseInts(salaries); err != nil {
		return in, fmt.Errorf("salaries: %w", err)
	}
	if in.spectrum, err = parseFloats(spectrum); err != nil {
		return in, fmt.Errorf("spectrum: %w", err)
	}
	return in, nil
}

func fields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func parseInts(s string) ([]int64, error) {
	fs := fields(s)
	out := make([]int64, len(fs))
	for i, f := range fs {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	fs := fields(s)
	out := make([]float64, len(fs))
	for i, f := range fs {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
