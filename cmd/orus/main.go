// Copyright 2024 The Orus Authors
// This file is part of Orus.
//
// Orus is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Orus is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Orus. If not, see <http://www.gnu.org/licenses/>.

// Command orus is the Orus VM's CLI entry point: argument parsing and the
// REPL loop's line-reading are the only things it owns — everything else
// is out of scope here and is delegated to package engine. Subcommand
// plumbing follows the cmd/gprobe tree's use of
// gopkg.in/urfave/cli.v1 rather than bare flag parsing, since the CLI
// surface, while out of scope for behavior, still deserves an idiomatic
// entry point built on the richer dependency already in go.mod.
package main

import (
	"bufio"
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/orus-lang/orus-vm/compiler"
	"github.com/orus-lang/orus-vm/engine"
	"github.com/orus-lang/orus-vm/internal/xlog"
	"github.com/orus-lang/orus-vm/lower"
	"github.com/orus-lang/orus-vm/module"
	"github.com/orus-lang/orus-vm/natives"
	"github.com/orus-lang/orus-vm/objcache"
)

var log = xlog.New(os.Stderr)

func main() {
	app := cli.NewApp()
	app.Name = "orus"
	app.Usage = "the Orus language virtual machine"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{runCommand, moduleCommand, replCommand}
	app.Action = func(ctx *cli.Context) error {
		if ctx.NArg() == 0 {
			return repl(ctx)
		}
		return runScript(ctx, ctx.Args().First())
	}

	if err := app.Run(os.Args); err != nil {
		log.Error("orus failed", "err", err)
		os.Exit(1)
	}
}

var runCommand = cli.Command{
	Name:      "run",
	Usage:     "compile and run an Orus script",
	ArgsUsage: "<script.orus>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.NewExitError("orus run: expected exactly one script path", 2)
		}
		return runScript(ctx, ctx.Args().First())
	},
}

var moduleCommand = cli.Command{
	Name:      "module",
	Usage:     "load and run an Orus module by import path",
	ArgsUsage: "<path>",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.NewExitError("orus module: expected exactly one import path", 2)
		}
		eng := newEngine(nil)
		status, err := eng.InterpretModule(ctx.Args().First())
		return exitFor(status, err)
	},
}

var replCommand = cli.Command{
	Name:  "repl",
	Usage: "start an interactive read-eval-print loop",
	Action: func(ctx *cli.Context) error {
		return repl(ctx)
	},
}

func runScript(ctx *cli.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	eng := newEngine(nil)
	status, err := eng.Interpret(string(data))
	return exitFor(status, err)
}

// repl implements a minimal read-eval-print loop: one Interpret call per
// line. Line-editing (history, completion) is out of scope — bufio.Scanner
// is the whole "terminal" this owns.
func repl(ctx *cli.Context) error {
	eng := newEngine(nil)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Fprint(os.Stdout, "orus> ")
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			if status, err := eng.Interpret(line); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", status, err)
			}
		}
		fmt.Fprint(os.Stdout, "orus> ")
	}
	fmt.Fprintln(os.Stdout)
	return scanner.Err()
}

// newEngine assembles an engine.Engine from environment variables:
// ORUS_TRACE, ORUS_PATH, ORUS_CACHE_PATH, ORUS_DEV_MODE. comp is the
// compiler frontend to use; main passes nil to mean "no frontend wired in
// yet" for now, since the lexer/parser/compiler are out-of-scope external
// collaborators supplied by a separate module in a full build.
func newEngine(comp compiler.Compiler) *engine.Engine {
	roots := searchRoots(os.Getenv("ORUS_PATH"))
	resolver := module.NewTieredResolver(roots, nil)
	loader := module.NewLoader(resolver, comp)
	loader.DevMode = os.Getenv("ORUS_DEV_MODE") != ""
	loader.LowerOptions = lower.Options{}

	if dir := os.Getenv("ORUS_CACHE_PATH"); dir != "" {
		loader.Cache = objcache.New(dir)
	}

	eng := engine.New(comp, loader, natives.NewRegistry())
	eng.Trace = os.Getenv("ORUS_TRACE") != ""
	loader.Trace = eng.Trace
	log.Enabled = eng.Trace
	return eng
}

func searchRoots(orusPath string) []string {
	if orusPath == "" {
		return nil
	}
	var roots []string
	start := 0
	for i := 0; i <= len(orusPath); i++ {
		if i == len(orusPath) || orusPath[i] == ':' {
			if i > start {
				roots = append(roots, orusPath[start:i])
			}
			start = i + 1
		}
	}
	return roots
}

func exitFor(status engine.Status, err error) error {
	if err == nil {
		return nil
	}
	return cli.NewExitError(fmt.Sprintf("%s: %v", status, err), 1)
}
