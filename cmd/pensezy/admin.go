package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksInsandji/pensezy-edition/internal/auth"
	"github.com/ksInsandji/pensezy-edition/internal/db"
	"github.com/ksInsandji/pensezy-edition/internal/models"
)

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Account bootstrap",
	}

	var email, firstName, lastName, password string
	create := &cobra.Command{
		Use:       "create marketplace|memoires",
		Short:     "Create an admin account; a password is generated when --password is empty",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"marketplace", "memoires"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			generated := password == ""
			if generated {
				password = auth.GeneratePassword()
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			store := db.New(e.db)

			switch args[0] {
			case "marketplace":
				p, err := store.CreateProfile(ctx, models.Profile{
					FullName:     strings.TrimSpace(firstName + " " + lastName),
					Email:        email,
					Role:         models.ProfileAdmin,
					PasswordHash: hash,
				})
				if err != nil {
					return err
				}
				fmt.Printf("admin %s created (id %s)\n", p.Email, p.ID)
			case "memoires":
				u, err := store.CreateUser(ctx, models.User{
					Email:        email,
					PasswordHash: hash,
					FirstName:    firstName,
					LastName:     lastName,
					Role:         models.RoleAdmin,
				})
				if err != nil {
					return err
				}
				fmt.Printf("admin %s created (id %d)\n", u.Email, u.ID)
			default:
				return fmt.Errorf("unknown application %q", args[0])
			}
			if generated {
				fmt.Println("initial password:", password)
			}
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&email, "email", "", "account e-mail")
	f.StringVar(&firstName, "first-name", "", "first name")
	f.StringVar(&lastName, "last-name", "Administrateur", "last name")
	f.StringVar(&password, "password", "", "initial password")
	_ = create.MarkFlagRequired("email")

	cmd.AddCommand(create)
	return cmd
}
