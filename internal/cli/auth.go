package cli

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spatalkback/talkback/pkg/client"
	"github.com/spatalkback/talkback/pkg/endpoints"
)

func newEndpointsCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "Print the API endpoint table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table := endpoints.New(flags.apiBaseURL()).Table()

			names := make([]string, 0, len(table))
			for name := range table {
				names = append(names, name)
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%s\n", name, table[name])
			}
			return w.Flush()
		},
	}
}

func newCaptchaCommand(flags *globalFlags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:       "captcha login|register",
		Short:     "Fetch a captcha and save its image",
		Long:      "Fetch a captcha challenge, write the image to --out and print the key to pass as --captcha-key.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{client.CaptchaLogin, client.CaptchaRegister},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			challenge, err := c.Captcha(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			img, err := decodeDataURL(challenge.Image)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, img, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "captcha_key: %s\nimage: %s\n", challenge.Key, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "captcha.png", "File to write the captcha image to")
	return cmd
}

func newLoginCommand(flags *globalFlags) *cobra.Command {
	var req client.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			if _, err := c.Login(cmd.Context(), req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", req.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&req.Captcha, "captcha", "", "Text of the captcha image")
	cmd.Flags().StringVar(&req.CaptchaKey, "captcha-key", "", "Key printed by 'talkback captcha login'")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored refresh token and forget the tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.Logout(cmd.Context(), ""); err != nil {
				if errors.Is(err, client.ErrNoToken) {
					return errors.New("not logged in")
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRegisterCommand(flags *globalFlags) *cobra.Command {
	var (
		req   client.RegisterRequest
		photo string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			attachment, closeFn, err := openAttachment(photo)
			if err != nil {
				return err
			}
			defer closeFn()
			req.Photo = attachment

			username, err := c.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password")
	cmd.Flags().StringVar(&req.HomePage, "home-page", "", "Home page URL")
	cmd.Flags().StringVar(&photo, "photo", "", "Profile photo (JPG, PNG or GIF)")
	cmd.Flags().StringVar(&req.Captcha, "captcha", "", "Text of the captcha image")
	cmd.Flags().StringVar(&req.CaptchaKey, "captcha-key", "", "Key printed by 'talkback captcha register'")
	return cmd
}

func decodeDataURL(s string) ([]byte, error) {
	_, payload, ok := strings.Cut(s, ";base64,")
	if !ok {
		return nil, fmt.Errorf("unexpected captcha image format")
	}
	return base64.StdEncoding.DecodeString(payload)
}
