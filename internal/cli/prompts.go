package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// PromptForQuestion asks the user for a financial question when none was
// passed on the command line.
func PromptForQuestion() (string, error) {
	var question string
	prompt := &survey.Input{
		Message: "What would you like to know?",
		Help:    "e.g. \"What was Apple's revenue last quarter?\" or \"Who are Nvidia's competitors?\"",
	}

	err := survey.AskOne(prompt, &question, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		if len(str) == 0 {
			return fmt.Errorf("question cannot be empty")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(question), nil
}
