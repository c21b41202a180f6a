// Package cmd provides the relaybot CLI commands.
//
// Commands:
//   - serve: connect to Discord and relay slash commands to the completion
//     service
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"os"
)

// Execute is the main entry point for the relaybot application.
func Execute() error {
	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("relaybot - Discord slash-command chat relay")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  relaybot serve       Connect to Discord and start relaying")
	fmt.Println("  relaybot --version   Show version information")
	fmt.Println("  relaybot --help      Show this help")
	fmt.Println()
	fmt.Println("Slash Commands (once connected):")
	fmt.Println("  /chat <message>      Send a message to the assistant")
	fmt.Println("  /reset               Clear your conversation history")
	fmt.Println("  /private             Replies visible only to you")
	fmt.Println("  /public              Replies visible to everyone")
	fmt.Println("  /persona <name>      Choose the assistant's persona")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DISCORD_TOKEN           Required: Discord bot token")
	fmt.Println("  DISCORD_APPLICATION_ID  Required: Discord application ID")
	fmt.Println("  DISCORD_GUILD_ID        Optional: guild for command registration")
	fmt.Println("  OPENAI_API_KEY          Required: OpenAI API key")
	fmt.Println()
	fmt.Println("Other settings live in ~/.relaybot/config.yaml; every key can be")
	fmt.Println("overridden with a RELAYBOT_-prefixed environment variable.")
}
