package srcom

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/wrwatch/internal/domain/model"
)

type link struct {
	Rel string `json:"rel"`
	URI string `json:"uri"`
}

type categoryData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	WebLink string `json:"weblink"`
	Type    string `json:"type"`
	Links   []link `json:"links"`
}

func (c categoryData) model() model.SourceCategory {
	return model.SourceCategory{
		ID:              c.ID,
		Name:            c.Name,
		GameID:          linkedID(c.Links, "game"),
		WebLink:         c.WebLink,
		IndividualLevel: c.Type == "per-level",
	}
}

type gameData struct {
	ID    string `json:"id"`
	Names struct {
		International string `json:"international"`
	} `json:"names"`
	WebLink string `json:"weblink"`
}

func (g gameData) model() model.SourceGame {
	return model.SourceGame{ID: g.ID, Name: g.Names.International, WebLink: g.WebLink}
}

type levelData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	WebLink string `json:"weblink"`
}

func (l levelData) model() model.Level {
	return model.Level{ID: l.ID, Name: l.Name, WebLink: l.WebLink}
}

type playerRef struct {
	Rel  string `json:"rel"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type runData struct {
	ID      string `json:"id"`
	WebLink string `json:"weblink"`
	Videos  *struct {
		Links []link `json:"links"`
	} `json:"videos"`
	Status struct {
		Status     string `json:"status"`
		VerifyDate string `json:"verify-date"`
	} `json:"status"`
	Players []playerRef `json:"players"`
	Date    string      `json:"date"`
	Times   struct {
		PrimaryT float64 `json:"primary_t"`
	} `json:"times"`
}

type embeddedPlayer struct {
	Rel   string `json:"rel"`
	ID    string `json:"id"`
	Name  string `json:"name"`
	Names struct {
		International string `json:"international"`
	} `json:"names"`
}

type leaderboardData struct {
	WebLink string `json:"weblink"`
	Runs    []struct {
		Place int     `json:"place"`
		Run   runData `json:"run"`
	} `json:"runs"`
	Players struct {
		Data []embeddedPlayer `json:"data"`
	} `json:"players"`
}

// runs converts the leaderboard to ascending time order, naming runners
// from the embedded players.
func (lb leaderboardData) runs() []model.Run {
	users := make(map[string]string, len(lb.Players.Data))
	for _, p := range lb.Players.Data {
		if p.Rel == "user" {
			users[p.ID] = p.Names.International
		}
	}
	out := make([]model.Run, 0, len(lb.Runs))
	for _, entry := range lb.Runs {
		out = append(out, entry.Run.model(users))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

func (r runData) model(users map[string]string) model.Run {
	run := model.Run{
		ID:      r.ID,
		Time:    time.Duration(math.Round(r.Times.PrimaryT*1000)) * time.Millisecond,
		Date:    parseTime("2006-01-02", r.Date),
		WebLink: r.WebLink,
		Runners: make([]string, 0, len(r.Players)),
	}
	switch r.Status.Status {
	case "verified":
		run.Status = model.RunStatus{State: model.RunVerified, VerifyDate: parseTime(time.RFC3339, r.Status.VerifyDate)}
	case "rejected":
		run.Status = model.RunStatus{State: model.RunRejected}
	default:
		run.Status = model.RunStatus{State: model.RunNew}
	}
	for _, p := range r.Players {
		switch {
		case p.Rel == "guest":
			run.Runners = append(run.Runners, p.Name)
		case users[p.ID] != "":
			run.Runners = append(run.Runners, users[p.ID])
		default:
			run.Runners = append(run.Runners, p.ID)
		}
	}
	if r.Videos != nil {
		for _, v := range r.Videos.Links {
			run.Videos = append(run.Videos, v.URI)
		}
	}
	return run
}

func parseTime(layout, s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return nil
	}
	return &t
}

func linkedID(links []link, rel string) string {
	for _, l := range links {
		if l.Rel == rel {
			return l.URI[strings.LastIndex(l.URI, "/")+1:]
		}
	}
	return ""
}

type notificationData struct {
	ID      string `json:"id"`
	Created string `json:"created"`
	Status  string `json:"status"`
	Text    string `json:"text"`
	Item    link   `json:"item"`
}

func (n notificationData) model() model.Notification {
	return model.Notification{
		ID:      n.ID,
		Text:    n.Text,
		Created: parseTime(time.RFC3339, n.Created),
		Read:    n.Status == "read",
		WebLink: n.Item.URI,
	}
}
