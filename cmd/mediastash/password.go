package main

import (
	"os"

	"github.com/AlecAivazis/survey/v2"

	"github.com/thebluefowl/mediastash/internal/config"
)

// masterPassword reads MEDIASTASH_PASSWORD or prompts for it.
func masterPassword() (string, error) {
	if p := os.Getenv(config.PasswordEnv); p != "" {
		return p, nil
	}
	return askMasterPassword()
}

func askMasterPassword() (string, error) {
	question := []*survey.Question{
		{
			Name: "password",
			Prompt: &survey.Password{
				Message: "Master Password:",
			},
			Validate: survey.Required,
		},
	}

	var password string
	if err := survey.Ask(question, &password); err != nil {
		return "", err
	}

	return password, nil
}
