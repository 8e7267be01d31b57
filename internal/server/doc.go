// Package server exposes question answering over HTTP. A single POST
// endpoint accepts a target URL and a question, runs the query pipeline,
// and returns the answer in a JSON envelope. Input validation happens
// before any network or model call, and pipeline failures map to stable
// machine-readable error kinds.
package server
