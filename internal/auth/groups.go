package auth

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const memberOfAttribute = "memberOf"

// groupCNPattern extracts the common name of a group DN up to the first comma.
var groupCNPattern = regexp.MustCompile(`(?i)CN=([^,]*)`)

// GroupResolver computes the transitive closure of a user's group memberships.
type GroupResolver struct {
	usersDN       string
	groupsDN      string
	groupsDNLower string
	concurrency   int
	maxDepth      int
}

// NewGroupResolver creates a resolver searching users below usersDN and groups below groupsDN.
// concurrency limits the parallel lookups of one round, maxDepth the number of rounds (0 = unbounded).
func NewGroupResolver(usersDN, groupsDN string, concurrency, maxDepth int) *GroupResolver {
	if concurrency <= 0 {
		concurrency = defaultMaxConcurrentSearches
	}

	return &GroupResolver{
		usersDN:       usersDN,
		groupsDN:      groupsDN,
		groupsDNLower: strings.ToLower(groupsDN),
		concurrency:   concurrency,
		maxDepth:      maxDepth,
	}
}

// resolve returns every group the user belongs to directly or through nested groups,
// deduplicated and sorted, and the number of rounds it took. Any failed lookup discards
// the partial result.
func (r *GroupResolver) resolve(ctx context.Context, sess *Session, username string) ([]string, int, error) {
	direct, err := r.memberOf(ctx, sess, r.usersDN, userFilter(username))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get direct groups of user %q: %w", username, err)
	}

	discovered := make(map[string]struct{}, len(direct))
	frontier := addUndiscovered(discovered, nil, direct)

	rounds := 0
	for len(frontier) > 0 {
		if r.maxDepth > 0 && rounds >= r.maxDepth {
			return nil, rounds, fmt.Errorf("%w: %d rounds", ErrResolutionDepthExceeded, r.maxDepth)
		}

		rounds++

		parents, errExpand := r.expand(ctx, sess, frontier)
		if errExpand != nil {
			return nil, rounds, errExpand
		}

		frontier = addUndiscovered(discovered, nil, parents)

		log.Debug().
			Str("username", username).
			Int("round", rounds).
			Int("new", len(frontier)).
			Int("discovered", len(discovered)).
			Msg("resolved group round")
	}

	groups := make([]string, 0, len(discovered))
	for group := range discovered {
		groups = append(groups, group)
	}

	slices.Sort(groups)

	return groups, rounds, nil
}

// expand looks up the parents of every frontier group concurrently and waits for all of them.
func (r *GroupResolver) expand(ctx context.Context, sess *Session, frontier []string) ([]string, error) {
	results := make([][]string, len(frontier))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, group := range frontier {
		g.Go(func() error {
			parents, err := r.memberOf(gctx, sess, r.groupsDN, groupFilter(group))
			if err != nil {
				return fmt.Errorf("failed to get parent groups of %q: %w", group, err)
			}

			results[i] = parents

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var parents []string
	for _, result := range results {
		parents = append(parents, result...)
	}

	return parents, nil
}

// memberOf searches baseDN and collects the group names of all matching entries.
func (r *GroupResolver) memberOf(ctx context.Context, sess *Session, baseDN, filter string) ([]string, error) {
	stream := sess.Search(ctx, baseDN, filter, []string{memberOfAttribute})

	var groups []string
	for stream.Next() {
		groups = append(groups, r.ExtractGroups(stream.Entry())...)
	}

	if err := stream.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

// ExtractGroups returns the group names listed in the memberOf attribute of entry.
// Values outside of the groups DN, such as distribution lists, are skipped. An entry
// without memberOf yields no groups.
func (r *GroupResolver) ExtractGroups(entry *ldap.Entry) []string {
	if entry == nil {
		return nil
	}

	var groups []string

	for _, attr := range entry.Attributes {
		if !strings.EqualFold(attr.Name, memberOfAttribute) {
			continue
		}

		for _, dn := range attr.Values {
			if !strings.Contains(strings.ToLower(dn), r.groupsDNLower) {
				continue
			}

			match := groupCNPattern.FindStringSubmatch(dn)
			if len(match) == 2 && match[1] != "" {
				groups = append(groups, match[1])
			}
		}
	}

	return groups
}

// addUndiscovered marks the groups not seen so far as discovered and appends them to dst.
func addUndiscovered(discovered map[string]struct{}, dst, groups []string) []string {
	for _, group := range groups {
		if _, ok := discovered[group]; ok {
			continue
		}

		discovered[group] = struct{}{}
		dst = append(dst, group)
	}

	return dst
}

func userFilter(username string) string {
	return fmt.Sprintf("(&(objectCategory=person)(objectClass=user)(sAMAccountName=%s))", ldap.EscapeFilter(username))
}

func groupFilter(group string) string {
	return fmt.Sprintf("(&(objectClass=group)(cn=%s))", ldap.EscapeFilter(group))
}
