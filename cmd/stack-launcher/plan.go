package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	roleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the resolved launch plan without starting anything",
	Long: `Resolve the service specs and readiness policy for the current
environment and print them. Nothing is launched.

Example:
  PLATFORM_HINT=render stack-launcher plan`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("configuration error: ")+err.Error())
			exitCode = exitUsage
			return nil
		}

		backend, frontend, policy, err := resolveStack(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render("resolution error: ")+err.Error())
			exitCode = exitUsage
			return nil
		}

		fmt.Println(titleStyle.Render("Launch plan") + "  (platform: " + cfg.PlatformHint + ")")
		fmt.Println()

		for _, spec := range []struct {
			role string
			addr string
			argv []string
		}{
			{"backend", backend.Addr(), backend.Argv()},
			{"frontend", frontend.Addr(), frontend.Argv()},
		} {
			fmt.Println(roleStyle.Render(spec.role))
			fmt.Println("  " + labelStyle.Render("bind") + valueStyle.Render(spec.addr))
			fmt.Println("  " + labelStyle.Render("command") + valueStyle.Render(strings.Join(spec.argv, " ")))
		}

		fmt.Println(roleStyle.Render("readiness"))
		fmt.Println("  " + labelStyle.Render("strategy") + valueStyle.Render(string(policy.Strategy)))
		fmt.Println("  " + labelStyle.Render("timeout") + valueStyle.Render(policy.Timeout.String()))
		fmt.Println("  " + labelStyle.Render("interval") + valueStyle.Render(policy.Interval.String()))
		if policy.ProbeURL != "" {
			fmt.Println("  " + labelStyle.Render("probe") + valueStyle.Render(policy.ProbeURL))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
