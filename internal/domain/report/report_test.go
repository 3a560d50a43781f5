package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/wrwatch/internal/domain/model"
	"github.com/okian/wrwatch/internal/domain/watch"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFormatDuration(t *testing.T) {
	Convey("FormatDuration", t, func() {
		cases := []struct {
			in   time.Duration
			want string
		}{
			{0, "0s"},
			{42 * time.Second, "42s"},
			{65 * time.Second, "1m 05s"},
			{59*time.Minute + 59*time.Second, "59m 59s"},
			{time.Hour + 2*time.Minute + 3500*time.Millisecond, "1h 02m 03.500s"},
			{1500 * time.Microsecond, "0.001500s"},
			{2*time.Second + 7, "2.000000007s"},
		}
		for _, c := range cases {
			So(FormatDuration(c.in), ShouldEqual, c.want)
		}
	})
}

func TestBuild(t *testing.T) {
	Convey("Given two games with resolved categories", t, func() {
		ctx := context.Background()
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		later := now.Add(24 * time.Hour)

		games := []model.Game{
			{Name: "slow", DisplayName: "Slow Game", Categories: map[string]model.CategoryConfig{
				"Any%": {}, "100%": {},
			}},
			{Name: "fast", Categories: map[string]model.CategoryConfig{
				"Any%": {}, "Glitchless": {}, "Broken": {}, "Watched": {},
			}},
			{Name: "empty", Categories: map[string]model.CategoryConfig{"Any%": {}}},
		}
		records := map[string][]model.Run{
			"slow/Any%":       {{ID: "s1", Time: 300 * time.Second}},
			"slow/100%":       {{ID: "s2", Time: 900 * time.Second}},
			"fast/Any%":       {{ID: "d1", Time: 50 * time.Second}, {ID: "f1", Time: 50 * time.Second}},
			"fast/Glitchless": {{ID: "f2", Time: 80 * time.Second}},
			"fast/Watched":    {{ID: "w1", Time: 10 * time.Second}, {ID: "w2", Time: 10 * time.Second}},
			"empty/Any%":      {},
		}
		resolve := func(_ context.Context, game, category string) ([]model.Run, error) {
			if category == "Broken" {
				return nil, errors.New("upstream down")
			}
			return records[game+"/"+category], nil
		}
		store := watch.NewStore(map[string]watch.State{
			"d1": {DeferredUntil: &later},
			"w2": {Watched: true},
		})

		rep := Build(ctx, games, resolve, store, now)

		Convey("Then sections are ordered by their fastest entry", func() {
			So(len(rep.Sections), ShouldEqual, 2)
			So(rep.Sections[0].Game, ShouldEqual, "fast")
			So(rep.Sections[0].Title, ShouldEqual, "fast")
			So(rep.Sections[1].Title, ShouldEqual, "Slow Game")
			So(rep.Total, ShouldEqual, 4)
		})

		Convey("Then entries skip deferred runs and hide watched ties", func() {
			fast := rep.Sections[0]
			So(len(fast.Entries), ShouldEqual, 2)
			So(fast.Entries[0].Category, ShouldEqual, "Any%")
			So(fast.Entries[0].Run.ID, ShouldEqual, "f1")
			So(fast.Entries[0].Time, ShouldEqual, "50s")
			So(fast.Entries[1].Category, ShouldEqual, "Glitchless")
			So(fast.Fastest, ShouldEqual, 50*time.Second)
		})

		Convey("Then entries within a game are sorted by time", func() {
			slow := rep.Sections[1]
			So(slow.Entries[0].Run.ID, ShouldEqual, "s1")
			So(slow.Entries[1].Time, ShouldEqual, "15m 00s")
		})

		Convey("Then failures are reported without aborting", func() {
			So(rep.Failures, ShouldResemble, []Failure{{Game: "fast", Category: "Broken", Error: "upstream down"}})
		})
	})

	Convey("Given no games", t, func() {
		rep := Build(context.Background(), nil, nil, watch.NewStore(nil), time.Now())
		So(rep.Sections, ShouldNotBeNil)
		So(rep.Sections, ShouldBeEmpty)
		So(rep.Total, ShouldEqual, 0)
	})
}

func TestAddNotifications(t *testing.T) {
	Convey("Given a report with one entry", t, func() {
		rep := Report{Total: 1, Sections: []Section{}}

		Convey("When notifications are added", func() {
			rep.AddNotifications([]model.Notification{
				{ID: "n2", Text: "New WR in Any%"},
				{ID: "n1", Text: "Old news", Read: true},
			})

			Convey("Then only unread ones are listed and counted", func() {
				So(len(rep.Notifications), ShouldEqual, 1)
				So(rep.Notifications[0].ID, ShouldEqual, "n2")
				So(rep.Total, ShouldEqual, 2)
			})
		})

		Convey("When there are none", func() {
			rep.AddNotifications(nil)
			So(rep.Notifications, ShouldBeNil)
			So(rep.Total, ShouldEqual, 1)
		})
	})
}
