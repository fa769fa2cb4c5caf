//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	serverBin   = "./bin/server"
	backfillBin = "./bin/backfill"
	configPath  = "configs/server.toml"
)

const lintTool = "github.com/golangci/golangci-lint/cmd/golangci-lint@v1.55.2"

var cgo = map[string]string{
	"CGO_ENABLED": "1",
}

func goModDownload() error {
	return sh.Run("go", "mod", "download")
}

// Build builds server and backfill binaries
func Build() error {
	mg.Deps(goModDownload)
	if err := sh.RunWith(cgo, "go", "build", "-o", serverBin, "./cmd/server"); err != nil {
		return err
	}
	return sh.RunWith(cgo, "go", "build", "-o", backfillBin, "./cmd/backfill")
}

// Run starts server
func Run() error {
	mg.Deps(Build)
	return sh.Run(serverBin, "-config", configPath)
}

// Backfill recomputes every stored rating from verified games
func Backfill() error {
	mg.Deps(Build)
	return sh.Run(backfillBin, "-config", configPath)
}

// Cert generates a self-signed certificate for the server
func Cert() error {
	return sh.Run("go", "run", "./cmd/certgen", "-config", configPath)
}

// Test runs unit tests. Postgres tests run when POSTGRES_TEST_URL is set.
func Test() error {
	return sh.RunWith(cgo, "go", "test", "-race", "./...")
}

func Lint() error {
	return sh.Run("go", "run", lintTool, "run", "./...")
}
