package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thebluefowl/mediastash/internal/compress"
	"github.com/thebluefowl/mediastash/internal/config"
	"github.com/thebluefowl/mediastash/internal/provider"
	"github.com/thebluefowl/mediastash/internal/storage"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create or replace the configuration file interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := setup()
		return err
	},
}

func setup() (*config.Config, error) {
	color.New(color.BgWhite).Println("Set up storage")
	fmt.Println()

	cfg, err := setupConfig()
	if err != nil {
		return nil, err
	}

	path := configPath
	if path == "" {
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := config.Save(cfg, path); err != nil {
		return nil, err
	}

	color.Green("✓ Configuration saved successfully!")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForeground(lipgloss.Color("63"))

	fmt.Println(boxStyle.Render(fmt.Sprintf("Config: %s\nBackend: %s\nContainer: %s", path, cfg.Backend, cfg.RootContainer)))

	if cfg.Encryption.Enabled {
		fmt.Println()
		color.Yellow(Wrap(fmt.Sprintf("⚠ The master password is never stored. Forgetting it will result in data loss. Set %s or enter it when prompted.", config.PasswordEnv), 60))
	}

	return cfg, nil
}

func setupConfig() (*config.Config, error) {
	cfg := config.Default()

	var base struct {
		Backend       string
		RootContainer string
	}
	baseQuestions := []*survey.Question{
		{
			Name: "backend",
			Prompt: &survey.Select{
				Message: "Storage backend:",
				Options: []string{
					string(config.BackendS3),
					string(config.BackendB2),
					string(config.BackendMinio),
					string(config.BackendAzure),
				},
				Default: string(config.BackendS3),
			},
		},
		{
			Name: "rootcontainer",
			Prompt: &survey.Input{
				Message: "Bucket or container name:",
			},
			Validate: survey.Required,
		},
	}
	if err := survey.Ask(baseQuestions, &base); err != nil {
		return nil, err
	}
	cfg.Backend = config.Backend(base.Backend)
	cfg.RootContainer = base.RootContainer

	if err := askBackend(cfg); err != nil {
		return nil, err
	}
	if err := askTransforms(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func askBackend(cfg *config.Config) error {
	switch cfg.Backend {
	case config.BackendAzure:
		return survey.AskOne(&survey.Password{Message: "Azure Storage connection string:"},
			&cfg.Azure.ConnectionString, survey.WithValidator(survey.Required))

	case config.BackendMinio:
		questions := []*survey.Question{
			{Name: "endpoint", Prompt: &survey.Input{Message: "MinIO endpoint:", Default: "localhost:9000"}, Validate: survey.Required},
			{Name: "usessl", Prompt: &survey.Confirm{Message: "Use TLS?", Default: false}},
		}
		if err := survey.Ask(questions, &cfg.Minio); err != nil {
			return err
		}

	case config.BackendB2:
		if err := survey.AskOne(&survey.Input{
			Message: "Backblaze Region:",
			Default: "us-west-002",
			Help:    "e.g., us-west-002, us-east-005, eu-central-003",
		}, &cfg.S3.Region, survey.WithValidator(survey.Required)); err != nil {
			return err
		}

	default:
		questions := []*survey.Question{
			{Name: "region", Prompt: &survey.Input{Message: "Region:", Default: "us-east-1"}},
			{Name: "endpoint", Prompt: &survey.Input{Message: "Custom endpoint (blank for AWS):"}},
		}
		if err := survey.Ask(questions, &cfg.S3); err != nil {
			return err
		}
	}

	var account struct {
		Key    string
		Secret string
	}
	questions := []*survey.Question{
		{Name: "key", Prompt: &survey.Input{Message: "Access key ID:"}, Validate: survey.Required},
		{Name: "secret", Prompt: &survey.Password{Message: "Secret access key:"}, Validate: survey.Required},
	}
	if err := survey.Ask(questions, &account); err != nil {
		return err
	}
	cfg.Account.Key = account.Key
	cfg.Account.Secret = account.Secret
	return nil
}

func askTransforms(cfg *config.Config) error {
	var answers struct {
		Compress bool
		Encrypt  bool
		Cipher   string
		Public   bool
	}
	questions := []*survey.Question{
		{Name: "compress", Prompt: &survey.Confirm{Message: "Compress images and video before upload?", Default: true}},
		{Name: "encrypt", Prompt: &survey.Confirm{Message: "Encrypt before upload?", Default: true}},
		{
			Name: "cipher",
			Prompt: &survey.Select{
				Message: "Cipher:",
				Options: []string{string(provider.CipherAge), string(provider.CipherXChaCha)},
				Default: string(provider.CipherAge),
				Help:    "age uses a scrypt passphrase per object; xchacha derives per-object keys from one master key",
			},
		},
		{Name: "public", Prompt: &survey.Confirm{Message: "Make stashed objects publicly readable?", Default: true}},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	cfg.Compression.Enabled = answers.Compress
	cfg.Compression.Algorithm = string(compress.Zstd)
	cfg.Encryption.Enabled = answers.Encrypt
	cfg.Encryption.Cipher = answers.Cipher
	if answers.Public {
		cfg.ACL = string(storage.ACLPublicRead)
	} else {
		cfg.ACL = string(storage.ACLPrivate)
	}
	return nil
}
