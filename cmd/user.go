package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/khrees2412/talentflow/internal/config"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

var userCmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"users"},
	Short:   "Manage the users candidates and jobs are attributed to",
}

var orgCmd = &cobra.Command{
	Use:     "org",
	Aliases: []string{"orgs"},
	Short:   "Manage client organizations",
}

func newUser(id, first, last, email, role string) (*models.User, error) {
	u := &models.User{
		ID:        strings.TrimSpace(id),
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      models.Role(strings.ToLower(strings.TrimSpace(role))),
		CreatedAt: time.Now().UTC(),
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.FirstName == "" || !strings.Contains(u.Email, "@") {
		return nil, apperrors.InvalidInput("first name and a valid email are required", nil)
	}
	if !u.Role.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q, must be ta, hr, bu, vendor, freelancer or admin", role), nil)
	}
	return u, nil
}

func printUser(w io.Writer, u *models.User) {
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Name:"), valueStyle.Render(u.FullName()))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("ID:"), valueStyle.Render(u.ID))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Email:"), valueStyle.Render(u.Email))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Role:"), valueStyle.Render(strings.ToUpper(string(u.Role))))
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create your user with an interactive wizard and act as it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		if a.Config.ActorID != "" {
			if u, err := a.Store.GetUser(cmd.Context(), a.Config.ActorID); err == nil {
				return respond(cmd, "already acting as "+u.FullName(), u, nil, func(w io.Writer) {
					fmt.Fprintln(w, "Use 'talentflow user add' to create more users.")
				})
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Welcome to Talentflow! Let's set up your user."))
		reader := bufio.NewReader(cmd.InOrStdin())
		prompt := func(label string) string {
			fmt.Fprint(out, labelStyle.Render(label+": "))
			v, _ := reader.ReadString('\n')
			return strings.TrimSpace(v)
		}
		first := prompt("First Name")
		last := prompt("Last Name")
		email := prompt("Email")
		role := prompt("Role (ta, hr, bu, vendor, freelancer, admin)")

		u, err := newUser("", first, last, email, role)
		if err != nil {
			return err
		}
		if err := a.Store.CreateUser(cmd.Context(), u); err != nil {
			return err
		}
		if err := config.Set("actor_id", u.ID); err != nil {
			return fmt.Errorf("error updating config: %w", err)
		}
		return respond(cmd, "user created, commands now act as "+u.FullName(), u, nil, func(w io.Writer) {
			printUser(w, u)
			fmt.Fprintln(w, "Next steps:")
			fmt.Fprintln(w, "  1. Add a client: talentflow org add Acme")
			fmt.Fprintln(w, "  2. Open a requisition: talentflow job create --title ... --org Acme")
			fmt.Fprintln(w, "  3. Register candidates: talentflow candidate register --kind fresher ...")
		})
	},
}

var addUserCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a user",
	Example: `  talentflow user add --first Tara --last Iyer --email tara@example.com --role ta
  talentflow user add --id vendor-1 --first Ravi --email ravi@staffing.example --role vendor`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		id, _ := f.GetString("id")
		first, _ := f.GetString("first")
		last, _ := f.GetString("last")
		email, _ := f.GetString("email")
		role, _ := f.GetString("role")
		u, err := newUser(id, first, last, email, role)
		if err != nil {
			return err
		}
		if err := a.Store.CreateUser(cmd.Context(), u); err != nil {
			return err
		}
		return respond(cmd, "user added", u, nil, func(w io.Writer) { printUser(w, u) })
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		users, err := a.Store.ListUsers(cmd.Context())
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d users", len(users)), users, nil, func(w io.Writer) {
			for _, u := range users {
				fmt.Fprintf(w, "  • %s %s %s\n", u.FullName(), valueStyle.Render("<"+u.Email+">"), strings.ToUpper(string(u.Role)))
				fmt.Fprintf(w, "    %s %s\n", labelStyle.Render("ID:"), u.ID)
			}
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the acting user",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, actor, err := session(cmd)
		if err != nil {
			return err
		}
		return respond(cmd, "acting as "+actor.FullName(), actor, nil, func(w io.Writer) { printUser(w, actor) })
	},
}

var addOrgCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a client organization",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		o, err := a.Jobs.RegisterOrganization(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return respond(cmd, "organization added", o, nil, func(w io.Writer) {
			field(w, "Name", o.Name)
			field(w, "ID", o.ID)
		})
	},
}

var listOrgsCmd = &cobra.Command{
	Use:   "list",
	Short: "List client organizations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		orgs, err := a.Jobs.Organizations(cmd.Context())
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d organizations", len(orgs)), orgs, nil, func(w io.Writer) {
			for _, o := range orgs {
				fmt.Fprintf(w, "  • %s %s\n", o.Name, valueStyle.Render("("+o.ID+")"))
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd, userCmd, orgCmd)
	userCmd.AddCommand(addUserCmd, listUsersCmd, whoamiCmd)
	orgCmd.AddCommand(addOrgCmd, listOrgsCmd)

	f := addUserCmd.Flags()
	f.String("id", "", "User id (generated when empty)")
	f.String("first", "", "First name")
	f.String("last", "", "Last name")
	f.String("email", "", "Email address")
	f.String("role", string(models.RoleTA), "Role: ta, hr, bu, vendor, freelancer or admin")
}
