package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doclantern/doclantern/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	writePromptTemplate()

	fmt.Printf("\n%s doclantern is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add your API key to %s\n", cfgPath)
	fmt.Println("     Get one at: https://openrouter.ai/keys")
	fmt.Println("  2. Enable a channel (telegram or slack) and add its token")
	fmt.Printf("  3. Try it: doclantern ask \"how do I set a timeout in the requests library?\"\n")
	return nil
}

func writePromptTemplate() {
	path := config.PromptPath()
	if _, err := os.Stat(path); err == nil {
		return
	}

	const template = `---
name: doclantern
description: documentation lookup assistant
---

You are a precise documentation assistant. Answer questions about software
libraries using only the documentation excerpts provided in the conversation.
Ground every claim in them and cite the source paths. If the documentation
does not cover the question, say so plainly instead of guessing.
`
	if err := os.WriteFile(path, []byte(template), 0o644); err == nil {
		fmt.Printf("  Created %s\n", path)
	}
}
