//go:build agmd2

package main

import (
	gpm "github.com/next-exp/gpm_go/pkg"
	"github.com/next-exp/gpm_go/pkg/agmd2"
)

var hardwareOpen gpm.OpenFunc = agmd2.Open
