package catalog

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalog(t *testing.T) {
	Convey("Given a catalog with entries from two domains", t, func() {
		c := New(
			Entry{Domain: DomainPhysics, Kind: "projectile", Title: "Projectile"},
			Entry{Domain: DomainAlgorithms, Kind: "quick_sort", Title: "Quick sort"},
			Entry{Domain: DomainAlgorithms, Kind: "bubble_sort", Title: "Bubble sort"},
		)

		Convey("When listing everything", func() {
			all := c.List("")

			Convey("Then entries are ordered by domain then kind", func() {
				So(len(all), ShouldEqual, 3)
				So(all[0].Kind, ShouldEqual, "bubble_sort")
				So(all[1].Kind, ShouldEqual, "quick_sort")
				So(all[2].Domain, ShouldEqual, DomainPhysics)
			})
		})

		Convey("When filtering by domain", func() {
			So(len(c.List(DomainPhysics)), ShouldEqual, 1)
			So(c.List(DomainFinance), ShouldBeEmpty)
		})

		Convey("When looking up entries", func() {
			e, ok := c.Lookup(DomainAlgorithms, "quick_sort")
			So(ok, ShouldBeTrue)
			So(e.Title, ShouldEqual, "Quick sort")

			_, ok = c.Lookup(DomainAlgorithms, "bogo_sort")
			So(ok, ShouldBeFalse)
		})

		Convey("When re-adding an entry", func() {
			c.Add(Entry{Domain: DomainPhysics, Kind: "projectile", Title: "Projectile motion"})

			Convey("Then it replaces the previous one", func() {
				So(c.Len(), ShouldEqual, 3)
				e, _ := c.Lookup(DomainPhysics, "projectile")
				So(e.Title, ShouldEqual, "Projectile motion")
				So(c.Domains(), ShouldResemble, []string{DomainAlgorithms, DomainPhysics})
			})
		})

		Convey("When building an example payload", func() {
			So(string(Example(map[string]int{"n": 1})), ShouldEqual, `{"n":1}`)
		})
	})
}
