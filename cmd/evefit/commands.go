package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/ErikKalkoken/evefit/internal/app"
	"github.com/ErikKalkoken/evefit/internal/characterservice"
)

var errUsage = errors.New("invalid usage")

// cli runs the commands of the app.
type cli struct {
	characterID int32 // selected character. 0 means the first one.
	cs          *characterservice.CharacterService
	in          io.Reader
	out         io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command: %w", errUsage)
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "login":
		return c.login(ctx)
	case "characters":
		return c.listCharacters(ctx)
	case "skills":
		skillIDs := make([]int32, 0, len(args))
		for _, a := range args {
			id, err := strconv.ParseInt(a, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid skill ID %q: %w", a, errUsage)
			}
			skillIDs = append(skillIDs, int32(id))
		}
		return c.showOverview(ctx, skillIDs)
	case "fittings":
		return c.listFittings(ctx)
	case "create-fitting":
		if len(args) != 1 {
			return fmt.Errorf("create-fitting needs a file: %w", errUsage)
		}
		return c.createFitting(ctx, args[0])
	case "delete-fitting":
		if len(args) != 1 {
			return fmt.Errorf("delete-fitting needs a fitting ID: %w", errUsage)
		}
		id, err := strconv.ParseInt(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid fitting ID %q: %w", args[0], errUsage)
		}
		return c.deleteFitting(ctx, int32(id))
	case "remove":
		return c.removeCharacter(ctx)
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}

func (c *cli) login(ctx context.Context) error {
	u, err := c.cs.LoginURL(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Open this URL in your browser and authorize a character:\n\n%s\n\n", u)
	fmt.Fprint(c.out, "Paste the URL you were redirected to: ")
	sc := bufio.NewScanner(c.in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return fmt.Errorf("no redirect URL entered: %w", errUsage)
	}
	state, code, err := parseRedirect(sc.Text())
	if err != nil {
		return err
	}
	token, err := c.cs.AddCharacter(ctx, state, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added character %s (%d)\n", token.CharacterName, token.CharacterID)
	return nil
}

// parseRedirect returns state and code from the URL the SSO server redirected to.
// The values are looked up in the query and then in the fragment.
func parseRedirect(s string) (state string, code string, err error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return "", "", fmt.Errorf("redirect URL: %w", err)
	}
	v := u.Query()
	if v.Get("code") == "" && u.Fragment != "" {
		v, err = url.ParseQuery(u.Fragment)
		if err != nil {
			return "", "", fmt.Errorf("redirect URL: %w", err)
		}
	}
	state, code = v.Get("state"), v.Get("code")
	if state == "" || code == "" {
		return "", "", fmt.Errorf("redirect URL has no state or code: %w", errUsage)
	}
	return state, code, nil
}

func (c *cli) listCharacters(ctx context.Context) error {
	tokens, err := c.cs.ListCharacters(ctx)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		fmt.Fprintln(c.out, "No characters. Use login to add one.")
		return nil
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tName\tStatus\tExpires\tLast refresh")
	for _, t := range tokens {
		expires := "-"
		if t.Status() == app.TokenActive {
			expires = humanize.Time(t.ExpiresAt)
		}
		refreshed := "-"
		if v, err := t.RefreshedAt.Value(); err == nil {
			refreshed = humanize.Time(v)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.CharacterID, t.CharacterName, t.Status(), expires, refreshed)
	}
	return w.Flush()
}

// selectedCharacter returns the ID of the selected character.
func (c *cli) selectedCharacter(ctx context.Context) (int32, error) {
	if c.characterID != 0 {
		return c.characterID, nil
	}
	tokens, err := c.cs.ListCharacters(ctx)
	if err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, fmt.Errorf("no characters. Use login to add one: %w", app.ErrNotFound)
	}
	return tokens[0].CharacterID, nil
}

func (c *cli) showOverview(ctx context.Context, skillIDs []int32) error {
	id, err := c.selectedCharacter(ctx)
	if err != nil {
		return err
	}
	o, err := c.cs.FetchOverview(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Character: %s (%d)\n", o.Info.Name, o.CharacterID)
	fmt.Fprintf(c.out, "Security status: %.1f\n", o.Info.SecurityStatus)
	fmt.Fprintf(c.out, "Skills: %d\n", len(o.Skills.Skills))
	fmt.Fprintf(c.out, "Total SP: %s\n", humanize.Comma(o.Skills.TotalSP))
	fmt.Fprintf(c.out, "Unallocated SP: %s\n", humanize.Comma(o.Skills.UnallocatedSP))
	if len(skillIDs) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Skill ID\tLevel")
	for _, id := range skillIDs {
		fmt.Fprintf(w, "%d\t%d\n", id, o.Skills.Level(id))
	}
	return w.Flush()
}

func (c *cli) listFittings(ctx context.Context) error {
	id, err := c.selectedCharacter(ctx)
	if err != nil {
		return err
	}
	fittings, err := c.cs.ListFittings(ctx, id)
	if err != nil {
		return err
	}
	if len(fittings) == 0 {
		fmt.Fprintln(c.out, "No fittings.")
		return nil
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tName\tShip type\tItems\tCargo")
	for _, f := range fittings {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\n", f.FittingID, f.Name, f.ShipTypeID, len(f.Items), len(f.Cargo()))
	}
	return w.Flush()
}

func (c *cli) createFitting(ctx context.Context, path string) error {
	id, err := c.selectedCharacter(ctx)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f app.Fitting
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("fitting file %s: %w", path, err)
	}
	fittingID, err := c.cs.CreateFitting(ctx, id, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Created fitting %d\n", fittingID)
	return nil
}

func (c *cli) deleteFitting(ctx context.Context, fittingID int32) error {
	id, err := c.selectedCharacter(ctx)
	if err != nil {
		return err
	}
	if err := c.cs.DeleteFitting(ctx, id, fittingID); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Deleted fitting %d\n", fittingID)
	return nil
}

func (c *cli) removeCharacter(ctx context.Context) error {
	id, err := c.selectedCharacter(ctx)
	if err != nil {
		return err
	}
	if err := c.cs.DeleteCharacter(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Removed character %d\n", id)
	return nil
}
