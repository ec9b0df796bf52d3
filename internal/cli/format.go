package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/drujensen/meowwchat/internal/domain/entities"
	"github.com/dustin/go-humanize"
)

// PrintThreads writes threads grouped by age, newest group first.
func PrintThreads(out io.Writer, threads []*entities.Thread) error {
	if len(threads) == 0 {
		_, err := fmt.Fprintln(out, "No threads yet. Start one with `meowwchat new <prompt>`.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, group := range entities.GroupThreads(threads, time.Now()) {
		if len(group.Threads) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\n", group.Label)
		for _, thread := range group.Threads {
			age := ""
			if created := thread.CreatedAt(); !created.IsZero() {
				age = humanize.Time(created)
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", thread.ID, thread.Title(), age)
		}
	}
	return w.Flush()
}

// PrintUser writes the account details returned by the backend.
func PrintUser(out io.Writer, user *entities.User) error {
	_, err := fmt.Fprintf(out, "%s <%s> (id %s)\n", user.DisplayName, user.Email, user.ID)
	return err
}
