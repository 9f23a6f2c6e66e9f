package identity

import (
	"context"
	"strings"
)

// Directory resolves usernames in the roster to their public profile.
type Directory struct {
	repo        Repository
	tipLinkHost string
}

// NewDirectory creates a directory over repo.
func NewDirectory(repo Repository, tipLinkHost string) *Directory {
	return &Directory{repo: repo, tipLinkHost: tipLinkHost}
}

// Lookup returns the public profile for username.
func (d *Directory) Lookup(ctx context.Context, username string) (Profile, error) {
	if strings.TrimSpace(username) == "" {
		return Profile{}, ErrNotFound
	}
	identity, err := d.repo.FindByUsername(ctx, username)
	if err != nil {
		return Profile{}, err
	}
	return d.profile(identity), nil
}

// Profiles lists every registered identity's public profile.
func (d *Directory) Profiles(ctx context.Context) ([]Profile, error) {
	all, err := d.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(all))
	for _, identity := range all {
		out = append(out, d.profile(identity))
	}
	return out, nil
}

func (d *Directory) profile(identity Identity) Profile {
	return Profile{
		Username:       identity.Username,
		StellarAddress: identity.StellarAddress,
		TipLink:        TipLink(d.tipLinkHost, identity.Username),
	}
}
