package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"crontabber/internal/app"
	"crontabber/internal/crontab"
)

const description = `crontabber keeps a per-user crontab backing file and installs it
with the system crontab tool. Jobs are added one line at a time or declared
in a config file and applied with "sync" or "watch".`

var scheduleFlags = []cli.Flag{
	cli.StringFlag{Name: "minute, m", Usage: "minute field (default: *)"},
	cli.StringFlag{Name: "hour, H", Usage: "hour field (default: *)"},
	cli.StringFlag{Name: "day, d", Usage: "day-of-month field (default: *)"},
	cli.StringFlag{Name: "month, M", Usage: "month field (default: *)"},
	cli.StringFlag{Name: "weekday, w", Usage: "day-of-week field (default: *)"},
}

var addFlags = slices.Concat(scheduleFlags, []cli.Flag{
	cli.StringFlag{Name: "app", Usage: "run COMMAND through the configured invoker with this entry point"},
})

func newApp(ctx context.Context) *cli.App {
	c := cli.NewApp()
	c.Name = "crontabber"
	c.HelpName = "crontabber"
	c.Usage = "build, save and install crontab entries"
	c.UsageText = "crontabber [global options] <command> [arguments...]"
	c.Description = description
	c.Version = version
	c.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "JSON or YAML config file", EnvVar: "CRONTABBER_CONFIG"},
		cli.StringFlag{Name: "dir", Usage: "backing file directory (overrides crontab.dir)", EnvVar: "CRONTABBER_DIR"},
		cli.StringFlag{Name: "file", Usage: "backing file name (overrides crontab.file)"},
		cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
	}
	c.OnUsageError = func(cc *cli.Context, err error, _ bool) error {
		if cc.Command.Name != "" {
			_ = cli.ShowCommandHelp(cc, cc.Command.Name)
		} else {
			_ = cli.ShowAppHelp(cc)
		}
		return err
	}
	c.Commands = []cli.Command{
		{
			Name:           "add",
			Aliases:        []string{"a"},
			Usage:          "append a job and save the backing file",
			ArgsUsage:      "[--app ENTRY] COMMAND [ARGS...]",
			SkipArgReorder: true, // COMMAND may carry its own flags
			Flags:          addFlags,
			Action:         withApp(ctx, add),
		},
		{
			Name:    "list",
			Aliases: []string{"ls", "l"},
			Usage:   "show jobs with their next run",
			Action:  withApp(ctx, list),
		},
		{
			Name:      "remove",
			Aliases:   []string{"rm"},
			Usage:     "remove the job at POS and save",
			ArgsUsage: "POS",
			Action:    withApp(ctx, remove),
		},
		{
			Name:   "clear",
			Usage:  "remove every job and save",
			Action: withApp(ctx, func(ctx context.Context, c *cli.Context, a *app.App) error { return a.Clear(ctx) }),
		},
		{
			Name:   "save",
			Usage:  "rewrite the backing file from its parsed jobs",
			Action: withApp(ctx, func(ctx context.Context, c *cli.Context, a *app.App) error { return a.Save(ctx) }),
		},
		{
			Name:   "install",
			Usage:  "install the backing file with the crontab tool",
			Action: withApp(ctx, func(ctx context.Context, c *cli.Context, a *app.App) error { return a.Install(ctx) }),
		},
		{
			Name:   "sync",
			Usage:  "replace the backing file with the declared jobs and install it",
			Flags:  []cli.Flag{cli.BoolFlag{Name: "force, f", Usage: "install even if unchanged"}},
			Action: withApp(ctx, syncJobs),
		},
		{
			Name:   "watch",
			Usage:  "sync now and after every config change",
			Action: withApp(ctx, func(ctx context.Context, c *cli.Context, a *app.App) error { return a.Watch(ctx) }),
		},
		{
			Name:   "lint",
			Usage:  "check every job's schedule",
			Action: withApp(ctx, lint),
		},
		{
			Name:   "history",
			Usage:  "show recent actions (needs storage)",
			Flags:  []cli.Flag{cli.IntFlag{Name: "limit, n", Value: 20, Usage: "number of entries"}},
			Action: withApp(ctx, history),
		},
	}
	return c
}

func run(ctx context.Context, args []string) error {
	return newApp(ctx).Run(args)
}

// withApp opens the App from the global flags around a command action.
func withApp(ctx context.Context, fn func(context.Context, *cli.Context, *app.App) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		a, err := app.New(app.Options{
			ConfigPath: c.GlobalString("config"),
			Dir:        c.GlobalString("dir"),
			File:       c.GlobalString("file"),
			LogLevel:   c.GlobalString("log-level"),
		})
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, c, a)
	}
}

func add(ctx context.Context, c *cli.Context, a *app.App) error {
	if !c.Args().Present() {
		return errors.New("add: COMMAND is required")
	}
	req := app.AddRequest{
		Fields: crontab.Fields{
			Minute:  c.String("minute"),
			Hour:    c.String("hour"),
			Day:     c.String("day"),
			Month:   c.String("month"),
			Weekday: c.String("weekday"),
		},
	}
	if entry := c.String("app"); entry != "" {
		req.App = &app.AppCommand{Entry: entry, Command: c.Args().First(), Args: c.Args().Tail()}
	} else {
		req.Command = strings.Join(c.Args(), " ")
	}
	j, err := a.Add(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "added: %s\n", j.Line())
	return nil
}

func list(ctx context.Context, c *cli.Context, a *app.App) error {
	writeEntries(c.App.Writer, a.List(time.Now()))
	return nil
}

func writeEntries(w io.Writer, entries []app.Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tNEXT\tJOB")
	for _, e := range entries {
		next := "-"
		if e.Err == nil {
			next = e.Next.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Pos, next, e.Job.Line())
	}
	_ = tw.Flush()
}

func remove(ctx context.Context, c *cli.Context, a *app.App) error {
	if c.NArg() != 1 {
		return errors.New("remove: exactly one POS is required")
	}
	pos, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("remove: invalid position %q", c.Args().First())
	}
	j, err := a.Remove(ctx, pos)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed: %s\n", j.Line())
	return nil
}

func syncJobs(ctx context.Context, c *cli.Context, a *app.App) error {
	res, err := a.Sync(ctx, c.Bool("force"))
	if err != nil {
		return err
	}
	state := "unchanged"
	if res.Installed {
		state = "installed"
	}
	fmt.Fprintf(c.App.Writer, "%s: %d jobs (%s)\n", a.Path(), res.Jobs, state)
	return nil
}

func lint(ctx context.Context, c *cli.Context, a *app.App) error {
	issues := a.Lint()
	if len(issues) == 0 {
		fmt.Fprintln(c.App.Writer, "ok")
		return nil
	}
	pos := make([]int, 0, len(issues))
	for p := range issues {
		pos = append(pos, p)
	}
	sort.Ints(pos)
	for _, p := range pos {
		fmt.Fprintf(c.App.Writer, "%d: %v\n", p, issues[p])
	}
	return fmt.Errorf("%d job(s) failed lint", len(issues))
}

func history(ctx context.Context, c *cli.Context, a *app.App) error {
	entries, err := a.History(ctx, c.Int("limit"))
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tACTION\tJOBS\tOK\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n", e.At.Local().Format(time.RFC3339), e.Action, e.Jobs, e.OK, e.Error)
	}
	return tw.Flush()
}
