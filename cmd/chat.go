package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"bistro/internal/agents"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	agentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	stageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff453a"))
)

var chatSave bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Order in the terminal",
	Long: `Chat with the ordering agents in the terminal.

Type /order to see the current order, /reset to start over and /quit to leave.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatSave, "save", false, "Persist confirmed orders to the configured database")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, chatSave)
	if err != nil {
		return err
	}
	defer a.close()

	factory, err := a.factory()
	if err != nil {
		return err
	}
	coord := factory(uuid.NewString())
	return chat(ctx, coord, cmd.InOrStdin(), cmd.OutOrStdout())
}

func chat(ctx context.Context, coord *agents.Coordinator, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, agentStyle.Render("bistro")+" "+coord.Greeting())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "/quit", "/exit":
			return nil
		case "/reset":
			coord.Reset()
			fmt.Fprintln(out, agentStyle.Render("bistro")+" "+coord.Greeting())
			continue
		case "/order":
			summary := coord.OrderDetails()
			fmt.Fprintln(out, summary.Message)
			for _, item := range summary.Items {
				fmt.Fprintf(out, "  %dx %s\n", item.Quantity, item.Name)
			}
			fmt.Fprintf(out, "  Total: $%s\n", summary.Totals.Total.StringFixed(2))
			continue
		}

		reply, err := coord.ProcessInput(ctx, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintln(out, agentStyle.Render(string(reply.Agent))+" "+stageStyle.Render("["+string(reply.Stage)+"]"))
		fmt.Fprintln(out, reply.Message)

		if reply.NeedsHuman {
			fmt.Fprintln(out, stageStyle.Render("A staff member will take over. Type /reset to start again."))
		}
	}
}
