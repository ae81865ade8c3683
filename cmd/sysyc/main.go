package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/sysy/compiler"
	"github.com/slowlang/sysy/compiler/parse"
	"github.com/slowlang/sysy/compiler/sim"
)

func main() {
	astCmd := &cli.Command{
		Name:        "ast",
		Description: "print the syntax tree back as source",
		Action:      genAct(compiler.ModeAST),
		Args:        cli.Args{},
		Flags:       flags(),
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "print Koopa IR",
		Action:      genAct(compiler.ModeIR),
		Args:        cli.Args{},
		Flags:       flags(),
	}

	asmCmd := &cli.Command{
		Name:        "asm",
		Description: "print RISC-V assembly",
		Action:      genAct(compiler.ModeAsm),
		Args:        cli.Args{},
		Flags:       flags(),
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile and execute main in the emulator, print its exit code",
		Action:      runAct,
		Args:        cli.Args{},
		Flags:       flags(),
	}

	app := &cli.Command{
		Name:        "sysyc",
		Description: "sysyc compiles SysY source to Koopa IR and RISC-V assembly",
		Commands: []*cli.Command{
			astCmd,
			irCmd,
			asmCmd,
			runCmd,
		},
		Flags: []*cli.Flag{
			cli.HelpFlag,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func flags() []*cli.Flag {
	return []*cli.Flag{
		cli.NewFlag("output,o", "", "output file, stdout if empty"),
		cli.NewFlag("alloc", "", "storage allocation strategy: stack or reg"),
		cli.NewFlag("config", "", "TOML config file"),
		cli.NewFlag("v", "", "log verbosity topics"),
		cli.HelpFlag,
	}
}

func setup(c *cli.Command, mode compiler.Mode) (ctx context.Context, cfg compiler.Config, err error) {
	if v := c.String("v"); v != "" {
		tlog.SetVerbosity(v)
	}

	ctx = context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	cfg = compiler.DefaultConfig()

	if name := c.String("config"); name != "" {
		cfg, err = compiler.LoadConfig(name)
		if err != nil {
			return nil, cfg, err
		}
	}

	cfg.Mode = mode

	if a := c.String("alloc"); a != "" {
		cfg.Alloc = a
	}

	return ctx, cfg, nil
}

func genAct(mode compiler.Mode) func(c *cli.Command) error {
	return func(c *cli.Command) (err error) {
		ctx, cfg, err := setup(c, mode)
		if err != nil {
			return err
		}

		outs := make([][]byte, len(c.Args))

		g, ctx := errgroup.WithContext(ctx)

		for i, a := range c.Args {
			i, a := i, a

			g.Go(func() error {
				obj, err := compiler.CompileFile(ctx, a, cfg)
				if err != nil {
					return errors.Wrap(err, "compile %v", a)
				}

				outs[i] = obj

				return nil
			})
		}

		err = g.Wait()
		if err != nil {
			return err
		}

		return output(c.String("output"), outs)
	}
}

func runAct(c *cli.Command) (err error) {
	ctx, cfg, err := setup(c, compiler.ModeAsm)
	if err != nil {
		return err
	}

	outs := make([][]byte, len(c.Args))

	for i, a := range c.Args {
		u, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		res, err := compiler.Run(ctx, u, cfg)
		if err != nil {
			return errors.Wrap(err, "run %v", a)
		}

		if len(c.Args) == 1 {
			outs[i] = fmt.Appendf(nil, "%d\n", sim.ExitCode(res))
		} else {
			outs[i] = fmt.Appendf(nil, "%s: %d\n", a, sim.ExitCode(res))
		}
	}

	return output(c.String("output"), outs)
}

func output(name string, outs [][]byte) (err error) {
	var w io.Writer = os.Stdout

	if name != "" {
		f, e := os.Create(name)
		if e != nil {
			return errors.Wrap(e, "create output")
		}

		defer func() {
			e := f.Close()
			if err == nil && e != nil {
				err = errors.Wrap(e, "close output")
			}
		}()

		w = f
	}

	for _, b := range outs {
		_, err = w.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}
