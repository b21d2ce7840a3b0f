package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMain(m *testing.M) {
	tempHome, err := os.MkdirTemp("", "canonsync-cmd-test-")
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = os.RemoveAll(tempHome)
	}()

	setEnvOrPanic := func(key, value string) {
		if err := os.Setenv(key, value); err != nil {
			panic(err)
		}
	}

	setEnvOrPanic("HOME", tempHome)

	canonHome := filepath.Join(tempHome, ".canonsync")
	_ = os.MkdirAll(filepath.Join(canonHome, "canonical"), 0o750)
	setEnvOrPanic("CANONSYNC_HOME", canonHome)

	os.Exit(m.Run())
}
