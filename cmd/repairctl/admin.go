package main

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/repairscan/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/entitlement"
	"github.com/ahmetcoskunkizilkaya/repairscan/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func userService(db *gorm.DB) *services.UserService {
	// A fresh in-memory cache; running servers pick the change up when their TTL lapses.
	gate := entitlement.NewGate(db, entitlement.NewMemoryCache(), entitlement.Config{})
	return services.NewUserService(db, catalog.NewStore(db), gate)
}

var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin <clerk-user-id>",
	Short: "Store the ADMIN role for a user",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(cmd *cobra.Command, args []string, db *gorm.DB) error {
		user, err := userService(db).GrantAdmin(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("grant admin: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.ClerkID, user.Role)
		return err
	}),
}

var revokeAdminCmd = &cobra.Command{
	Use:   "revoke-admin <clerk-user-id>",
	Short: "Reset a stored ADMIN role to USER",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(cmd *cobra.Command, args []string, db *gorm.DB) error {
		user, err := userService(db).RevokeAdmin(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("revoke admin: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.ClerkID, user.Role)
		return err
	}),
}
