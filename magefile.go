//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles the acquisition program (simulated digitizer only) and the
// HDF5 converter.
func Build() error {
	mg.Deps(BuildGpm)
	mg.Deps(BuildGpm2hdf5)
	fmt.Println("Compilation finished")
	return nil
}

// Hardware builds the acquisition program linked against the AgMD2 driver.
func Hardware() error {
	fmt.Println("Building gpm executable with AgMD2 support...")
	return goBuild(true, "-tags", "agmd2", "-o", "./bin/gpm", "./gpm")
}

func BuildGpm() error {
	fmt.Println("Building gpm executable...")
	return goBuild(false, "-o", "./bin/gpm", "./gpm")
}

func BuildGpm2hdf5() error {
	fmt.Println("Building gpm2hdf5 executable...")
	return goBuild(true, "-o", "./bin/gpm2hdf5", "./gpm2hdf5")
}

func Test() error {
	fmt.Println("Running tests...")
	cmd := exec.Command("go", "test", "./pkg/...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goBuild(cgo bool, args ...string) error {
	cmd := exec.Command("go", append([]string{"build"}, args...)...)
	cmd.Env = os.Environ()
	if cgo {
		cmd.Env = append(cmd.Env,
			"CGO_ENABLED=1",
			fmt.Sprintf("CGO_LDFLAGS=%s", os.Getenv("CGO_LDFLAGS")),
			fmt.Sprintf("CGO_CFLAGS=%s", os.Getenv("CGO_CFLAGS")))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
