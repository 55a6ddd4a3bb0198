// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build mage

package main

import (
	"fmt"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const coverProfile = "coverage.out"

// Test groups test targets.
type Test mg.Namespace

// All runs all tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Race runs all tests with the race detector. The backup scheduler and the
// batch sync timer are the concurrent paths it exercises.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Pkg runs the tests of one package under internal/, e.g. mage test:pkg backup.
func (Test) Pkg(name string) error {
	return sh.RunV(binGo, "test", "-v", "./internal/"+strings.Trim(name, "/")+"/...")
}

// Cover writes coverage.out and prints per-function coverage totals.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	out, err := sh.Output(binGo, "tool", "cover", "-func="+coverProfile)
	if err != nil {
		return err
	}
	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		fmt.Println(lines[len(lines)-1])
	}
	return nil
}
