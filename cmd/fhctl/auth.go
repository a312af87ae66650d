// auth.go — команды регистрации и входа: register, login, logout, whoami.
package main

import (
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bigkaa/gofeedhub/internal/apiclient"
	"github.com/bigkaa/gofeedhub/internal/cli/session"
)

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Зарегистрировать нового владельца проектов",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Войти и сохранить access token в keychain",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Удалить сохранённый access token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Показать текущего пользователя",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

// readPassword запрашивает пароль без эха терминала.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("чтение пароля: %w", err)
	}
	return string(data), nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	email := args[0]

	password, err := readPassword("Пароль (мин. 8 символов): ")
	if err != nil {
		return err
	}

	u, err := newAnonClient().Register(cmd.Context(), email, password)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusConflict) {
			return fmt.Errorf("email %s уже зарегистрирован", email)
		}
		return err
	}

	fmt.Printf("Пользователь %s зарегистрирован (id %s)\n", u.Email, u.ID)
	fmt.Println("Выполните вход: fhctl login", u.Email)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	email := args[0]

	password, err := readPassword("Пароль: ")
	if err != nil {
		return err
	}

	accessToken, err := newAnonClient().Login(cmd.Context(), email, password)
	if err != nil {
		if apiclient.IsStatus(err, http.StatusUnauthorized) {
			return fmt.Errorf("неверный email или пароль")
		}
		return err
	}

	if err := session.NewStore().Set(accessToken); err != nil {
		return err
	}

	fmt.Printf("Вход выполнен: %s\n", email)
	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	if err := session.NewStore().Clear(); err != nil {
		return err
	}
	fmt.Println("Сессия завершена")
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	u, err := newClient().Me(cmd.Context())
	if err != nil {
		if apiclient.IsStatus(err, http.StatusUnauthorized) {
			return fmt.Errorf("вы не вошли в систему: fhctl login <email>")
		}
		return err
	}

	fmt.Printf("%s (id %s, зарегистрирован %s)\n",
		u.Email, u.ID, u.CreatedAt.Format("2006-01-02"))
	return nil
}
