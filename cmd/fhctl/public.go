// public.go — работа с публичной формой без авторизации:
// public show и public submit.
package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bigkaa/gofeedhub/internal/apiclient"
)

var publicCmd = &cobra.Command{
	Use:   "public",
	Short: "Публичная форма фидбека",
}

var publicShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Карточка проекта по публичному slug",
	Args:  cobra.ExactArgs(1),
	RunE:  runPublicShow,
}

var (
	submitType  string
	submitText  string
	submitEmail string
)

var publicSubmitCmd = &cobra.Command{
	Use:   "submit <slug>",
	Short: "Отправить фидбек по публичному slug",
	Args:  cobra.ExactArgs(1),
	RunE:  runPublicSubmit,
}

func init() {
	publicSubmitCmd.Flags().StringVar(&submitType, "type", "", "тип фидбека: BUG, FEATURE, CONFUSION или SUGGESTION")
	publicSubmitCmd.Flags().StringVar(&submitText, "description", "", "текст фидбека")
	publicSubmitCmd.Flags().StringVar(&submitEmail, "email", "", "email отправителя (необязательно)")
	_ = publicSubmitCmd.MarkFlagRequired("type")
	_ = publicSubmitCmd.MarkFlagRequired("description")

	publicCmd.AddCommand(publicShowCmd)
	publicCmd.AddCommand(publicSubmitCmd)
	rootCmd.AddCommand(publicCmd)
}

// Публичная форма не раскрывает, существует ли проект: для 404 и 410
// выводим одно и то же сообщение.
func publicUnavailableErr(slug string) error {
	return fmt.Errorf("проект %s не найден или приём фидбека завершён", slug)
}

func runPublicShow(cmd *cobra.Command, args []string) error {
	slug := args[0]

	p, err := newAnonClient().PublicProject(cmd.Context(), slug)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) || apiclient.IsStatus(err, http.StatusGone) {
			return publicUnavailableErr(slug)
		}
		return err
	}

	fmt.Printf("Проект: %s\n", p.Name)
	if p.Description != "" {
		fmt.Printf("Описание: %s\n", p.Description)
	}
	if p.ProductURL != "" {
		fmt.Printf("Продукт: %s\n", p.ProductURL)
	}
	fmt.Printf("Фидбек принимается до: %s\n", p.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

func runPublicSubmit(cmd *cobra.Command, args []string) error {
	slug := args[0]

	params := apiclient.FeedbackSubmit{
		Type:        submitType,
		Description: submitText,
	}
	if submitEmail != "" {
		params.SubmitterEmail = &submitEmail
	}

	receipt, err := newAnonClient().SubmitFeedback(cmd.Context(), slug, params)
	if err != nil {
		switch {
		case apiclient.IsStatus(err, http.StatusNotFound), apiclient.IsStatus(err, http.StatusGone):
			return publicUnavailableErr(slug)
		case apiclient.IsStatus(err, http.StatusBadRequest):
			return fmt.Errorf("фидбек не принят: %w", err)
		case apiclient.IsStatus(err, http.StatusTooManyRequests):
			return fmt.Errorf("слишком много запросов, повторите позже")
		}
		return err
	}

	fmt.Printf("Фидбек принят: %s (%s)\n", receipt.ID, receipt.Type)
	return nil
}
