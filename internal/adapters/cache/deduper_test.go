package cache_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/verdict/internal/adapters/cache"
	"github.com/okian/verdict/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestRedisDeduper(t *testing.T) {
	Convey("Given a deduper on a fresh Redis", t, func() {
		ctx := context.Background()
		srv := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		defer client.Close()

		d := cache.NewRedisDeduper(client, cache.WithKeyPrefix("test:"), cache.WithTTL(time.Minute))

		Convey("When a key is recorded", func() {
			first := d.SeenAndRecord(ctx, "e-1/j-1")
			second := d.SeenAndRecord(ctx, "e-1/j-1")

			Convey("Then only the first call sees it as new", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
				So(srv.Exists("test:e-1/j-1"), ShouldBeTrue)
				So(srv.TTL("test:e-1/j-1"), ShouldEqual, time.Minute)
			})

			Convey("And it is new again once the TTL passes", func() {
				srv.FastForward(time.Minute + time.Second)
				So(d.SeenAndRecord(ctx, "e-1/j-1"), ShouldBeFalse)
			})
		})

		Convey("When keys outside the prefix exist", func() {
			So(srv.Set("other", "x"), ShouldBeNil)
			d.SeenAndRecord(ctx, "a")
			d.SeenAndRecord(ctx, "b")

			Convey("Then Size counts only its own keys", func() {
				So(d.Size(), ShouldEqual, 2)
			})
		})

		Convey("When Size is read repeatedly", func() {
			d.SeenAndRecord(ctx, "a")
			first := d.Size()
			d.SeenAndRecord(ctx, "b")
			cached := d.Size()

			uncached := cache.NewRedisDeduper(client, cache.WithKeyPrefix("test:"), cache.WithSizeRefresh(0))

			Convey("Then the count is reused inside the refresh interval", func() {
				So(first, ShouldEqual, 1)
				So(cached, ShouldEqual, 1)
			})

			Convey("Then a zero interval scans every time", func() {
				So(uncached.Size(), ShouldEqual, 2)
				uncached.SeenAndRecord(ctx, "c")
				So(uncached.Size(), ShouldEqual, 3)
			})
		})

		Convey("When Redis goes away", func() {
			srv.Close()

			Convey("Then keys are reported as new and Size is zero", func() {
				So(d.SeenAndRecord(ctx, "x"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestNewRedisClient(t *testing.T) {
	Convey("Given a running Redis", t, func() {
		srv := miniredis.RunT(t)

		Convey("Then a redis URL connects", func() {
			client, err := cache.NewRedisClient(context.Background(), "redis://"+srv.Addr())
			So(err, ShouldBeNil)
			So(client.Close(), ShouldBeNil)
		})

		Convey("Then a malformed URL is rejected", func() {
			_, err := cache.NewRedisClient(context.Background(), "://nope")
			So(errors.Is(err, cache.ErrRedisUnavailable), ShouldBeTrue)
		})

		Convey("Then an unreachable server is rejected", func() {
			addr := srv.Addr()
			srv.Close()
			_, err := cache.NewRedisClient(context.Background(), "redis://"+addr)
			So(errors.Is(err, cache.ErrRedisUnavailable), ShouldBeTrue)
		})
	})
}
