// projects.go — команды управления проектами:
// projects list, projects create, projects show, projects update, projects delete.
package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/gofeedhub/internal/apiclient"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Управление проектами",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Список проектов, новые первыми",
	RunE:  runProjectsList,
}

var (
	createDescription string
	createProductURL  string
	createExpiryDays  int
)

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Создать проект и получить публичный slug",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsCreate,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Карточка проекта вместе с его фидбеком",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

var (
	updateName        string
	updateDescription string
	updateProductURL  string
	updateExpiryDays  int
)

var projectsUpdateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Изменить поля проекта, не заданные флаги не трогаются",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsUpdate,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Удалить проект вместе с фидбеком",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	projectsCreateCmd.Flags().StringVar(&createDescription, "description", "", "описание проекта")
	projectsCreateCmd.Flags().StringVar(&createProductURL, "url", "", "ссылка на продукт")
	projectsCreateCmd.Flags().IntVar(&createExpiryDays, "expiry-days", -1,
		"срок приёма фидбека в днях (по умолчанию задаёт сервер)")

	projectsUpdateCmd.Flags().StringVar(&updateName, "name", "", "новое название")
	projectsUpdateCmd.Flags().StringVar(&updateDescription, "description", "", "новое описание")
	projectsUpdateCmd.Flags().StringVar(&updateProductURL, "url", "", "новая ссылка на продукт")
	projectsUpdateCmd.Flags().IntVar(&updateExpiryDays, "expiry-days", -1, "новый срок приёма фидбека в днях")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsShowCmd)
	projectsCmd.AddCommand(projectsUpdateCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}

func runProjectsList(cmd *cobra.Command, _ []string) error {
	projects, err := newClient().ListProjects(cmd.Context())
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		fmt.Println("Проектов пока нет: fhctl projects create <name>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tНАЗВАНИЕ\tSLUG\tПРИЁМ ДО\tСОЗДАН")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.PublicSlug,
			p.ExpiresAt.Format("2006-01-02"),
			p.CreatedAt.Format("2006-01-02"),
		)
	}
	return w.Flush()
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	params := apiclient.ProjectCreate{
		Name:        args[0],
		Description: createDescription,
		ProductURL:  createProductURL,
	}
	if createExpiryDays >= 0 {
		params.FeedbackExpiryDays = &createExpiryDays
	}

	p, err := newClient().CreateProject(cmd.Context(), params)
	if err != nil {
		return err
	}

	fmt.Printf("Проект %q создан (id %s)\n", p.Name, p.ID)
	fmt.Printf("Публичная ссылка для фидбека: %s/api/public/%s\n", serverURL, p.PublicSlug)
	fmt.Printf("Приём фидбека до %s\n", p.ExpiresAt.Format("2006-01-02 15:04"))
	return nil
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	projectID := args[0]
	client := newClient()

	// Карточка проекта и его фидбек запрашиваются параллельно
	var (
		project  *apiclient.Project
		feedback []apiclient.Feedback
	)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		var err error
		project, err = client.GetProject(ctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		feedback, err = client.ListFeedback(ctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("проект %s не найден", projectID)
		}
		return err
	}

	fmt.Printf("Проект: %s\n", project.Name)
	if project.Description != "" {
		fmt.Printf("Описание: %s\n", project.Description)
	}
	if project.ProductURL != "" {
		fmt.Printf("Продукт: %s\n", project.ProductURL)
	}
	fmt.Printf("Slug: %s\n", project.PublicSlug)
	fmt.Printf("Приём фидбека до: %s\n", project.ExpiresAt.Format("2006-01-02 15:04"))
	fmt.Printf("Фидбек (%d):\n", len(feedback))

	if len(feedback) == 0 {
		fmt.Println("  пока нет")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  ID\tТИП\tСТАТУС\tEMAIL\tОТПРАВЛЕН")
	for _, f := range feedback {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			f.ID, f.Type, f.Status,
			strOrDash(f.SubmitterEmail),
			f.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

func runProjectsUpdate(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	var params apiclient.ProjectUpdate
	if cmd.Flags().Changed("name") {
		params.Name = &updateName
	}
	if cmd.Flags().Changed("description") {
		params.Description = &updateDescription
	}
	if cmd.Flags().Changed("url") {
		params.ProductURL = &updateProductURL
	}
	if cmd.Flags().Changed("expiry-days") {
		params.FeedbackExpiryDays = &updateExpiryDays
	}
	if params == (apiclient.ProjectUpdate{}) {
		return fmt.Errorf("не задано ни одного флага для изменения")
	}

	p, err := newClient().UpdateProject(cmd.Context(), projectID, params)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("проект %s не найден", projectID)
		}
		return err
	}

	fmt.Printf("Проект %q обновлён\n", p.Name)
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	if err := newClient().DeleteProject(cmd.Context(), projectID); err != nil {
		if apiclient.IsStatus(err, http.StatusNotFound) {
			return fmt.Errorf("проект %s не найден", projectID)
		}
		return err
	}

	fmt.Printf("Проект %s удалён\n", projectID)
	return nil
}
