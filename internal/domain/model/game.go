package model

// Game is one configured game. Name is the configuration key and is the
// game half of every record cache key.
type Game struct {
	Name        string
	DisplayName string
	// SourceGames maps an upstream game id to category ids ignored for it.
	SourceGames map[string][]string
	Categories  map[string]CategoryConfig
}

// Title returns the display name, falling back to the configuration key.
func (g Game) Title() string {
	if g.DisplayName != "" {
		return g.DisplayName
	}
	return g.Name
}

// CategoryConfig describes how one logical category maps onto upstream
// leaderboards. Slices are treated as sets.
type CategoryConfig struct {
	// SourceCategories are upstream category ids treated as equivalent.
	SourceCategories []string
	// Variables maps a variable id to the value ids allowed for it.
	// Empty means the unfiltered leaderboard of each source category.
	Variables map[string][]string
	// Levels is only consulted for individual-level source categories.
	Levels []string
	// Subcategories name other categories of the same game.
	Subcategories []string
}

// SourceCategory is an upstream category.
type SourceCategory struct {
	ID              string
	Name            string
	GameID          string
	WebLink         string
	IndividualLevel bool
}

// SourceGame is an upstream game.
type SourceGame struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	WebLink string `json:"weblink,omitempty"`
}

// Level is an upstream level of an individual-level category.
type Level struct {
	ID      string
	Name    string
	WebLink string
}
