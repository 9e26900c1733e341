//go:build !agmd2

package main

import (
	gpm "github.com/next-exp/gpm_go/pkg"
)

// Without the agmd2 tag only the simulated digitizer is available.
var hardwareOpen gpm.OpenFunc
