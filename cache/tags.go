package cache

import "strings"

// Tag names shared by the middleware, the invalidator and the admin surface.
const (
	// GameTagPrefix prefixes per-game-type tags ("game:slots").
	GameTagPrefix = "game:"
	// AllGamesTag is carried by every game-scoped entry.
	AllGamesTag = "game"
	// UserTagPrefix prefixes per-user tags ("user:0xabc...").
	UserTagPrefix = "user:"
)

// GameTag returns the tag for a game type.
func GameTag(gameType string) string {
	return GameTagPrefix + gameType
}

// GameTags returns the tags a game-scoped entry carries: the umbrella tag
// and, when gameType is set, the per-type tag.
func GameTags(gameType string) []string {
	if gameType == "" {
		return []string{AllGamesTag}
	}
	return []string{AllGamesTag, GameTag(gameType)}
}

// UserTag returns the tag for a user identity. Identities are wallet
// addresses, which compare case-insensitively.
func UserTag(identity string) string {
	return UserTagPrefix + strings.ToLower(strings.TrimSpace(identity))
}
