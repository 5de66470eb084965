package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/h44z/vote-portal/internal/app/admin"
	"github.com/h44z/vote-portal/internal/app/auth"
	"github.com/h44z/vote-portal/internal/app/voting"
	"github.com/h44z/vote-portal/internal/domain"
	"github.com/h44z/vote-portal/internal/ports/console"
)

var credentialFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    passwordFlag,
		Aliases: []string{"p"},
		Usage:   "The account password, used if no password argument is given.",
		EnvVars: []string{"VOTE_PORTAL_PASSWORD"},
	},
}

var commands = []*cli.Command{
	{
		Name:   "shell",
		Usage:  "start the interactive client (default)",
		Action: runShell,
	},
	{
		Name:  "status",
		Usage: "check the backend connection and show the current session",
		Action: func(c *cli.Context) error {
			portal.monitor.CheckNow(c.Context)
			info := portal.monitor.Info()

			portal.renderer.Banner(info)
			portal.renderer.Session(portal.sessions.Current())

			if !info.Status.IsReachable() {
				return cli.Exit("", 1)
			}
			return nil
		},
	},
	{
		Name:      "register",
		Usage:     "create a new account",
		ArgsUsage: "<username> [password]",
		Flags:     credentialFlags,
		Action: func(c *cli.Context) error {
			return submitCredentials(c, auth.ModeRegister)
		},
	},
	{
		Name:      "login",
		Usage:     "sign in and remember the session",
		ArgsUsage: "<username> [password]",
		Flags:     credentialFlags,
		Action: func(c *cli.Context) error {
			return submitCredentials(c, auth.ModeLogin)
		},
	},
	{
		Name:  "logout",
		Usage: "forget the stored session",
		Action: func(c *cli.Context) error {
			if err := portal.sessions.Logout(c.Context); err != nil {
				return errors.WithMessage(err, "failed to remove session")
			}
			fmt.Println("Logged out.")
			return nil
		},
	},
	{
		Name:  "whoami",
		Usage: "show the stored session",
		Action: func(c *cli.Context) error {
			portal.renderer.Session(portal.sessions.Current())
			return nil
		},
	},
	{
		Name:    "candidates",
		Aliases: []string{"list", "l"},
		Usage:   "show the voting dashboard",
		Action: func(c *cli.Context) error {
			s, err := requireSession(c.Context)
			if err != nil {
				return err
			}

			flow := portal.votingFlow()
			flow.Mount(c.Context)

			st := flow.State()
			if st.Error != "" {
				return errors.New(st.Error)
			}
			portal.renderer.Dashboard(s, st)
			return nil
		},
	},
	{
		Name:      "vote",
		Usage:     "vote for a candidate",
		ArgsUsage: "<candidate id>",
		Action: func(c *cli.Context) error {
			id, err := candidateIdArg(c)
			if err != nil {
				return err
			}
			if _, err := requireSession(c.Context); err != nil {
				return err
			}

			flow := portal.votingFlow()
			flow.Mount(c.Context)
			flow.CastVote(c.Context, id)

			st := flow.State()
			if err := voteResult(st); err != nil {
				return err
			}
			portal.renderer.Messages(st.Error, st.Success)
			return nil
		},
	},
	{
		Name:  "results",
		Usage: "show the current vote shares",
		Action: func(c *cli.Context) error {
			if _, err := requireSession(c.Context); err != nil {
				return err
			}

			candidates, err := portal.gateway.GetResults(c.Context)
			if err != nil {
				return errors.New(domain.ErrorText(err, voting.MsgLoadFailed))
			}

			results := domain.Snapshot(candidates)
			portal.renderer.Statistics(results)
			portal.renderer.Results(results)
			return nil
		},
	},
	{
		Name:  "admin",
		Usage: "manage candidates (administrators only)",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "show all candidates",
				Action: func(c *cli.Context) error {
					flow, err := mountAdminFlow(c, nil)
					if err != nil {
						return err
					}
					return adminResult(flow)
				},
			},
			{
				Name:      "add",
				Usage:     "add a candidate",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					flow, err := mountAdminFlow(c, nil)
					if err != nil {
						return err
					}

					flow.OpenAddForm()
					flow.SetNewName(strings.Join(c.Args().Slice(), " "))
					flow.SubmitAdd(c.Context)
					return adminResult(flow)
				},
			},
			{
				Name:      "rename",
				Usage:     "rename a candidate",
				ArgsUsage: "<candidate id> <name>",
				Action: func(c *cli.Context) error {
					id, err := candidateIdArg(c)
					if err != nil {
						return err
					}
					flow, err := mountAdminFlow(c, nil)
					if err != nil {
						return err
					}

					flow.StartEdit(id)
					flow.SetEditName(strings.Join(c.Args().Tail(), " "))
					flow.SubmitEdit(c.Context)
					return adminResult(flow)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a candidate",
				ArgsUsage: "<candidate id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    yesFlag,
						Aliases: []string{"y"},
						Usage:   "Do not ask for confirmation.",
					},
				},
				Action: func(c *cli.Context) error {
					id, err := candidateIdArg(c)
					if err != nil {
						return err
					}

					var confirmer admin.Confirmer = admin.ConfirmFunc(confirmOnStdin)
					if c.Bool(yesFlag) {
						confirmer = admin.ConfirmFunc(func(string) bool { return true })
					}
					flow, err := mountAdminFlow(c, confirmer)
					if err != nil {
						return err
					}

					flow.Delete(c.Context, id)
					return adminResult(flow)
				},
			},
		},
	},
	{
		Name:  "audit",
		Usage: "show the local activity journal",
		Action: func(c *cli.Context) error {
			if portal.audit == nil {
				return errors.New("audit journal is disabled, enable it with audit.enabled")
			}

			entries, err := portal.audit.GetAll(c.Context)
			if err != nil {
				return errors.WithMessage(err, "failed to load audit entries")
			}
			portal.renderer.Audit(entries)
			return nil
		},
	},
}

func runShell(c *cli.Context) error {
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if portal.metrics != nil {
		go portal.metrics.Run(ctx)
	}

	portal.monitor.Start(ctx)
	defer portal.monitor.Stop()

	shell := console.NewShell(os.Stdin, os.Stdout, portal.sessions, portal.monitor, portal.pages())
	if err := shell.Run(ctx); err != nil {
		return errors.WithMessage(err, "failed to read input")
	}
	return nil
}

func (p *client) authFlow() *auth.Flow {
	return auth.NewFlow(p.gateway, p.sessions, p.bus)
}

func (p *client) votingFlow() *voting.Flow {
	return voting.NewFlow(p.gateway, p.sessions, p.bus)
}

func (p *client) adminFlow(confirmer admin.Confirmer) *admin.Flow {
	return admin.NewFlow(p.gateway, p.sessions, confirmer, p.bus)
}

func (p *client) pages() console.Pages {
	return console.Pages{
		Auth:   func() console.AuthFlow { return p.authFlow() },
		Voting: func() console.VotingFlow { return p.votingFlow() },
		Admin:  func(confirmer admin.Confirmer) console.AdminFlow { return p.adminFlow(confirmer) },
	}
}

// requireBackend applies the same gate as the interactive shell: nothing works without a reachable backend.
func requireBackend(ctx context.Context) error {
	if status := portal.monitor.CheckNow(ctx); !status.IsReachable() {
		return errors.Errorf("backend %s is unreachable", portal.cfg.Backend.BaseUrl)
	}
	return nil
}

func requireSession(ctx context.Context) (*domain.Session, error) {
	if err := requireBackend(ctx); err != nil {
		return nil, err
	}

	s := portal.sessions.Current()
	if s == nil {
		return nil, errors.WithMessage(domain.ErrNoSession, "please login first")
	}
	return s, nil
}

func submitCredentials(c *cli.Context, mode auth.Mode) error {
	if err := requireBackend(c.Context); err != nil {
		return err
	}

	password := c.Args().Get(1)
	if password == "" {
		password = c.String(passwordFlag)
	}

	flow := portal.authFlow()
	if flow.State().Mode != mode {
		flow.ToggleMode()
	}
	flow.SetUsername(strings.TrimSpace(c.Args().First()))
	flow.SetPassword(password)
	flow.Submit(c.Context)

	st := flow.State()
	if st.Error != "" {
		return errors.New(st.Error)
	}
	portal.renderer.Messages("", st.Success)
	return nil
}

func mountAdminFlow(c *cli.Context, confirmer admin.Confirmer) (*admin.Flow, error) {
	if _, err := requireSession(c.Context); err != nil {
		return nil, err
	}

	flow := portal.adminFlow(confirmer)
	if flow.State().AccessDenied {
		return nil, errors.WithMessage(domain.ErrNoPermission, admin.MsgAccessDenied)
	}
	flow.Mount(c.Context)
	return flow, nil
}

func adminResult(flow *admin.Flow) error {
	st := flow.State()
	if st.Error != "" {
		return errors.New(st.Error)
	}
	portal.renderer.Admin(st)
	return nil
}

// voteResult fails only if the vote itself was not recorded. A refresh error after an accepted vote is
// reported but does not fail the command.
func voteResult(st voting.State) error {
	if st.HasVoted && st.Success != "" {
		return nil
	}
	if st.Error != "" {
		return errors.New(st.Error)
	}
	return nil
}

func candidateIdArg(c *cli.Context) (domain.CandidateId, error) {
	if c.Args().Len() < 1 {
		return 0, errors.New("missing candidate id")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(c.Args().First()), 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid candidate id %q", c.Args().First())
	}
	return domain.CandidateId(id), nil
}

func confirmOnStdin(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
