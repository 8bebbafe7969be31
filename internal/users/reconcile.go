package users

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/ayush/social-media-api/internal/models"
)

// GraphStore defines the follow-graph reads and writes the reconciler needs.
type GraphStore interface {
	FollowGraph(ctx context.Context) ([]models.User, error)
	// SetFollowings replaces the followings list only while it still equals
	// old, and reports whether it did.
	SetFollowings(ctx context.Context, id string, old, next []string) (bool, error)
}

// Reconciler repairs one-directional follow edges left behind when a follow
// or unfollow wrote only one of its two documents. Followers lists are
// written first and are therefore taken as the source of truth.
type Reconciler struct {
	graph   GraphStore
	timeout time.Duration
}

func NewReconciler(graph GraphStore) *Reconciler {
	return &Reconciler{graph: graph, timeout: 5 * time.Minute}
}

// Run rebuilds the followings lists from the followers lists and returns the
// number of users whose list was rewritten. Only edges between existing users
// are repaired: ids of deleted users stay where they are, self references are
// dropped. A user whose list changed after the graph was read is skipped and
// left for the next run.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	graph, err := r.graph.FollowGraph(ctx)
	if err != nil {
		return 0, err
	}

	exists := make(map[string]bool, len(graph))
	for _, u := range graph {
		exists[u.HexID()] = true
	}

	want := make(map[string][]string, len(graph))
	for _, u := range graph {
		id := u.HexID()
		for _, follower := range u.Followers {
			if follower == id || !exists[follower] {
				continue
			}
			want[follower] = append(want[follower], id)
		}
	}

	repaired := 0
	for _, u := range graph {
		id := u.HexID()
		next := repair(id, u.Followings, want[id], exists)
		if slices.Equal(u.Followings, next) {
			continue
		}
		ok, err := r.graph.SetFollowings(ctx, id, u.Followings, next)
		if err != nil {
			return repaired, fmt.Errorf("repair followings of %s: %w", id, err)
		}
		if !ok {
			log.Debug().Str("user_id", id).Msg("Followings changed during repair, skipped")
			continue
		}
		log.Info().Str("user_id", id).Strs("before", u.Followings).Strs("after", next).Msg("Repaired followings")
		repaired++
	}
	return repaired, nil
}

// Schedule runs the reconciler on the given cron spec until the returned
// scheduler is stopped.
func (r *Reconciler) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		n, err := r.Run(ctx)
		if err != nil {
			log.Error().Err(err).Int("repaired", n).Msg("Follow graph repair failed")
			return
		}
		log.Debug().Int("repaired", n).Msg("Follow graph repair finished")
	})
	if err != nil {
		return nil, fmt.Errorf("graph repair schedule %q: %w", spec, err)
	}
	c.Start()
	log.Info().Str("schedule", spec).Msg("Follow graph repair scheduled")
	return c, nil
}

// repair returns current with the edges to existing users replaced by want.
// Existing ids keep their relative order, missing ones are appended, and ids
// of users that do not exist are kept in place. Duplicates and self are
// removed.
func repair(self string, current, want []string, exists map[string]bool) []string {
	wanted := make(map[string]bool, len(want))
	for _, id := range want {
		wanted[id] = true
	}

	out := make([]string, 0, len(current)+len(want))
	seen := make(map[string]bool, len(current)+len(want))
	for _, id := range current {
		if id == self || seen[id] {
			continue
		}
		if wanted[id] || !exists[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, id := range want {
		if !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	return out
}
