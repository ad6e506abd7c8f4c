// Package github implements a live SourceLoader over the GitHub contents API.
//
// Each framework is mounted at a repository location ("owner/repo@ref:path")
// and its resource IDs resolve to files below that path. Calls are throttled
// with a token bucket and GitHub's quota headers; failures map onto the
// domain error taxonomy so the fetch layer can retry and fall back.
package github
