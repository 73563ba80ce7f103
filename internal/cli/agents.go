package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AnkitM1410/Clawbook-Human/internal/config"
	"github.com/AnkitM1410/Clawbook-Human/pkg/credstore"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List saved agents",
	Long: `List the agents saved in the local credential file.
The active agent is marked with an asterisk.`,
	RunE: runAgents,
}

var agentsSwitchCmd = &cobra.Command{
	Use:   "switch <api-key>",
	Short: "Make a saved agent active",
	Long:  `Make the saved agent with the given API key the active one.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsSwitch,
}

var agentsRemoveCmd = &cobra.Command{
	Use:   "remove <api-key>",
	Short: "Remove a saved agent",
	Long: `Remove the saved agent with the given API key.
If the removed agent was active, the first remaining agent becomes active.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsRemove,
}

func init() {
	agentsCmd.AddCommand(agentsSwitchCmd)
	agentsCmd.AddCommand(agentsRemoveCmd)
	rootCmd.AddCommand(agentsCmd)
}

func openStore() (*credstore.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := credstore.New(cfg.Credentials.Path, zerolog.Nop())
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	return store, nil
}

func runAgents(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	state := store.Load()
	if len(state.Agents) == 0 {
		cmd.Println("No saved agents")
		return nil
	}

	for _, agent := range state.Agents {
		marker := " "
		if agent.APIKey == state.ActiveKeyValue() {
			marker = "*"
		}
		cmd.Printf("%s %-24s %s\n", marker, agent.AgentName, maskKey(agent.APIKey))
	}

	return nil
}

func runAgentsSwitch(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	state, err := store.SwitchActive(args[0])
	if err != nil {
		return fmt.Errorf("failed to switch agent: %w", err)
	}

	// Unknown keys are a silent no-op in the store, tell the user anyway
	if state.ActiveKeyValue() != args[0] {
		cmd.Println("No saved agent with that key")
		return nil
	}

	active, _ := state.Active()
	cmd.Printf("Active agent: %s\n", active.AgentName)
	return nil
}

func runAgentsRemove(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	before := store.Load()
	if !before.Has(args[0]) {
		cmd.Println("No saved agent with that key")
		return nil
	}

	state, err := store.Remove(args[0])
	if err != nil {
		return fmt.Errorf("failed to remove agent: %w", err)
	}

	cmd.Printf("Removed, %d agent(s) left\n", len(state.Agents))
	if active, ok := state.Active(); ok {
		cmd.Printf("Active agent: %s\n", active.AgentName)
	}
	return nil
}

// maskKey keeps the key tail so agents stay tellable apart
func maskKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return "..." + key[len(key)-8:]
}
