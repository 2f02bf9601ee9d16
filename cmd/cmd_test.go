package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaderFlags(t *testing.T) {
	headers, err := parseHeaderFlags([]string{"Host=example.com", "x-cos-meta-sha1=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Host": "example.com", "x-cos-meta-sha1": "a=b"}, headers)

	_, err = parseHeaderFlags([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseHeaderFlags([]string{"=x"})
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"server", "worker", "sign", "token"} {
		assert.True(t, names[want], want)
	}
}
