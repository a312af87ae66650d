// feedback.go — команды триажа фидбека:
// feedback show, feedback accept, feedback reject, feedback resolve,
// feedback history.
package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bigkaa/gofeedhub/internal/apiclient"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Триаж фидбека",
}

var feedbackShowCmd = &cobra.Command{
	Use:   "show <feedback-id>",
	Short: "Карточка фидбека",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackShow,
}

var feedbackNote string

var feedbackAcceptCmd = &cobra.Command{
	Use:   "accept <feedback-id>",
	Short: "Принять фидбек в работу (NEW → ACCEPTED)",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunner("ACCEPTED"),
}

var feedbackRejectCmd = &cobra.Command{
	Use:   "reject <feedback-id>",
	Short: "Отклонить фидбек (NEW → REJECTED)",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunner("REJECTED"),
}

var feedbackResolveCmd = &cobra.Command{
	Use:   "resolve <feedback-id>",
	Short: "Закрыть фидбек как решённый (ACCEPTED → RESOLVED), --note обязателен",
	Args:  cobra.ExactArgs(1),
	RunE:  transitionRunner("RESOLVED"),
}

var feedbackHistoryCmd = &cobra.Command{
	Use:   "history <feedback-id>",
	Short: "История статусов фидбека",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackHistory,
}

func init() {
	for _, c := range []*cobra.Command{feedbackAcceptCmd, feedbackRejectCmd, feedbackResolveCmd} {
		c.Flags().StringVar(&feedbackNote, "note", "", "комментарий к переходу")
	}

	feedbackCmd.AddCommand(feedbackShowCmd)
	feedbackCmd.AddCommand(feedbackAcceptCmd)
	feedbackCmd.AddCommand(feedbackRejectCmd)
	feedbackCmd.AddCommand(feedbackResolveCmd)
	feedbackCmd.AddCommand(feedbackHistoryCmd)
	rootCmd.AddCommand(feedbackCmd)
}

// transitionRunner возвращает RunE для перехода фидбека в target.
// Комментарий для RESOLVED проверяется локально до похода на сервер.
func transitionRunner(target string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		feedbackID := args[0]

		var note *string
		if trimmed := strings.TrimSpace(feedbackNote); trimmed != "" {
			note = &trimmed
		}
		if target == "RESOLVED" && note == nil {
			return fmt.Errorf("для resolve требуется непустой --note")
		}

		f, err := newClient().UpdateFeedbackStatus(cmd.Context(), feedbackID, target, note)
		if err != nil {
			switch {
			case apiclient.IsStatus(err, http.StatusNotFound):
				return fmt.Errorf("фидбек %s не найден", feedbackID)
			case apiclient.IsStatus(err, http.StatusForbidden):
				return fmt.Errorf("фидбек %s принадлежит другому владельцу", feedbackID)
			case apiclient.IsStatus(err, http.StatusConflict):
				return fmt.Errorf("статус фидбека уже изменён, обновите данные: fhctl feedback show %s", feedbackID)
			}
			return err
		}

		fmt.Printf("Фидбек %s переведён в %s\n", f.ID, f.Status)
		if len(f.AllowedTransitions) > 0 {
			fmt.Printf("Доступные переходы: %s\n", strings.Join(f.AllowedTransitions, ", "))
		}
		return nil
	}
}

func runFeedbackShow(cmd *cobra.Command, args []string) error {
	f, err := newClient().GetFeedback(cmd.Context(), args[0])
	if err != nil {
		switch {
		case apiclient.IsStatus(err, http.StatusNotFound):
			return fmt.Errorf("фидбек %s не найден", args[0])
		case apiclient.IsStatus(err, http.StatusForbidden):
			return fmt.Errorf("фидбек %s принадлежит другому владельцу", args[0])
		}
		return err
	}

	fmt.Printf("Фидбек %s\n", f.ID)
	fmt.Printf("Тип: %s\n", f.Type)
	fmt.Printf("Статус: %s\n", f.Status)
	fmt.Printf("Отправитель: %s\n", strOrDash(f.SubmitterEmail))
	fmt.Printf("Отправлен: %s\n", f.CreatedAt.Format("2006-01-02 15:04"))
	if f.ResolvedAt != nil {
		fmt.Printf("Закрыт: %s\n", f.ResolvedAt.Format("2006-01-02 15:04"))
	}
	fmt.Printf("Описание:\n%s\n", f.Description)
	if len(f.AllowedTransitions) > 0 {
		fmt.Printf("Доступные переходы: %s\n", strings.Join(f.AllowedTransitions, ", "))
	}
	return nil
}

func runFeedbackHistory(cmd *cobra.Command, args []string) error {
	history, err := newClient().FeedbackHistory(cmd.Context(), args[0])
	if err != nil {
		switch {
		case apiclient.IsStatus(err, http.StatusNotFound):
			return fmt.Errorf("фидбек %s не найден", args[0])
		case apiclient.IsStatus(err, http.StatusForbidden):
			return fmt.Errorf("фидбек %s принадлежит другому владельцу", args[0])
		}
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "КОГДА\tПЕРЕХОД\tКОММЕНТАРИЙ")
	for _, e := range history {
		fmt.Fprintf(w, "%s\t%s -> %s\t%s\n",
			e.ChangedAt.Format("2006-01-02 15:04:05"),
			e.OldStatus, e.NewStatus,
			strOrDash(e.Note),
		)
	}
	return w.Flush()
}
