package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spatalkback/talkback/pkg/client"
)

func newPostsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List, read, create and delete posts",
	}
	cmd.AddCommand(
		newPostsListCommand(flags),
		newPostsGetCommand(flags),
		newPostsCreateCommand(flags),
		newPostsDeleteCommand(flags),
	)
	return cmd
}

func newPostsListCommand(flags *globalFlags) *cobra.Command {
	var opts client.ListPostsOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			page, err := c.ListPosts(cmd.Context(), opts)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAUTHOR\tCREATED\tTEXT")
			for _, p := range page.Results {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, p.User.Username, p.CreatedAt.Format("2006-01-02 15:04"), excerpt(p.Text))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d post(s) in total\n", page.Count)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Username, "username", "", "Only authors whose username contains this")
	cmd.Flags().StringVar(&opts.Email, "email", "", "Only authors whose email contains this")
	cmd.Flags().BoolVar(&opts.Ascending, "asc", false, "Oldest first")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "Posts per page (server default when 0)")
	return cmd
}

func newPostsGetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			post, err := c.GetPost(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), post)
		},
	}
}

func newPostsCreateCommand(flags *globalFlags) *cobra.Command {
	var text, image, file string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			req := client.PostRequest{Text: &text}
			var closeImage, closeFile func()
			if req.Image, closeImage, err = openAttachment(image); err != nil {
				return err
			}
			defer closeImage()
			if req.File, closeFile, err = openAttachment(file); err != nil {
				return err
			}
			defer closeFile()

			post, err := c.CreatePost(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), post)
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "Post text")
	cmd.Flags().StringVar(&image, "image", "", "Attach an image (JPG, PNG or GIF)")
	cmd.Flags().StringVar(&file, "file", "", "Attach a text file")
	cmd.MarkFlagRequired("text")
	return cmd
}

func newPostsDeleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one of your posts and its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.DeletePost(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted post %d\n", id)
			return nil
		},
	}
}

func newCommentsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "List, read, write and delete comments",
	}
	cmd.AddCommand(
		newCommentsListCommand(flags),
		newCommentsGetCommand(flags),
		newCommentsCreateCommand(flags),
		newCommentsDeleteCommand(flags),
	)
	return cmd
}

func newCommentsListCommand(flags *globalFlags) *cobra.Command {
	var postID uint
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List comments, or every comment of one post with --post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			var comments []client.Comment
			if postID != 0 {
				comments, err = c.PostComments(cmd.Context(), postID)
			} else {
				var result *client.Page[client.Comment]
				if result, err = c.ListComments(cmd.Context(), page, pageSize); err == nil {
					comments = result.Results
				}
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPOST\tPARENT\tAUTHOR\tTEXT")
			for _, cm := range comments {
				parent := "-"
				if cm.Parent != nil {
					parent = fmt.Sprint(*cm.Parent)
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", cm.ID, cm.Post, parent, cm.User.Username, excerpt(cm.Text))
			}
			return w.Flush()
		},
	}
	cmd.Flags().UintVar(&postID, "post", 0, "Only comments of this post")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "Comments per page (server default when 0)")
	return cmd
}

func newCommentsGetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			comment, err := c.GetComment(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), comment)
		},
	}
}

func newCommentsCreateCommand(flags *globalFlags) *cobra.Command {
	var (
		postID, parentID  uint
		text, image, file string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Comment on a post, or reply with --parent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}

			req := client.CommentRequest{Post: postID, Text: &text}
			if parentID != 0 {
				req.Parent = &parentID
			}
			var closeImage, closeFile func()
			if req.Image, closeImage, err = openAttachment(image); err != nil {
				return err
			}
			defer closeImage()
			if req.File, closeFile, err = openAttachment(file); err != nil {
				return err
			}
			defer closeFile()

			comment, err := c.CreateComment(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), comment)
		},
	}
	cmd.Flags().UintVar(&postID, "post", 0, "Post to comment on")
	cmd.Flags().UintVar(&parentID, "parent", 0, "Comment to reply to")
	cmd.Flags().StringVarP(&text, "text", "t", "", "Comment text")
	cmd.Flags().StringVar(&image, "image", "", "Attach an image (JPG, PNG or GIF)")
	cmd.Flags().StringVar(&file, "file", "", "Attach a text file")
	cmd.MarkFlagRequired("post")
	cmd.MarkFlagRequired("text")
	return cmd
}

func newCommentsDeleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one of your comments and its replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := flags.newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteComment(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment %d\n", id)
			return nil
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}
