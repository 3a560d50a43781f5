package dedupe_test

import (
	"testing"

	dedupe "github.com/okian/wrwatch/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSet(t *testing.T) {
	Convey("Given a new Set", t, func() {
		s := dedupe.New(4)

		Convey("When an id is recorded for the first time", func() {
			seen := s.SeenAndRecord("r1")

			Convey("Then it should report unseen and grow", func() {
				So(seen, ShouldBeFalse)
				So(s.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same id is recorded twice", func() {
			s.SeenAndRecord("r1")
			seen := s.SeenAndRecord("r1")

			Convey("Then the second call reports seen without growing", func() {
				So(seen, ShouldBeTrue)
				So(s.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the empty string is recorded", func() {
			So(s.SeenAndRecord(""), ShouldBeFalse)
			So(s.SeenAndRecord(""), ShouldBeTrue)
		})
	})

	Convey("Given a negative size hint", t, func() {
		So(func() { dedupe.New(-1) }, ShouldNotPanic)
	})
}

func TestHelpers(t *testing.T) {
	Convey("Given ids with repeats", t, func() {
		ids := []string{"b", "a", "b", "c", "a"}

		Convey("Strings keeps first occurrences in order", func() {
			So(dedupe.Strings(ids), ShouldResemble, []string{"b", "a", "c"})
			So(dedupe.Strings(nil), ShouldResemble, []string{})
		})

		Convey("By deduplicates on a derived key", func() {
			type run struct{ id, note string }
			runs := []run{{"r1", "direct"}, {"r2", "direct"}, {"r1", "subcategory"}}
			out := dedupe.By(runs, func(r run) string { return r.id })
			So(out, ShouldResemble, []run{{"r1", "direct"}, {"r2", "direct"}})
		})
	})
}
