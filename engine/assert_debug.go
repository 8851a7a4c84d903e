//go:build bridgedebug

package engine

const debugAssertions = true
