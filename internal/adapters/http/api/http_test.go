package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/okian/visualverse/internal/adapters/http/api"
	service "github.com/okian/visualverse/internal/app"
	"github.com/okian/visualverse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	adminEmail    = "admin@visualverse.test"
	adminPassword = "correct-horse-battery"
)

type fixture struct {
	ctx     context.Context
	svc     *service.Service
	handler http.Handler
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)
	svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(64))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop(context.Background()) })
	if _, err := svc.Auth().Bootstrap(ctx, adminEmail, adminPassword); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	srv := api.NewServer(api.Deps{
		Renderer:  svc,
		Jobs:      svc,
		Content:   svc.Content(),
		Admin:     svc.Auth(),
		Stats:     svc,
		Dashboard: svc,
	}, opts...)
	return &fixture{ctx: ctx, svc: svc, handler: srv.Routes()}
}

func (f *fixture) do(method, path, token string, body any, hdr ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(email, password string) string {
	rec := f.do(http.MethodPost, "/admin/login", "", map[string]string{"email": email, "password": password})
	var out struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out.Token
}

func decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func TestRenderEndpoints(t *testing.T) {
	Convey("Given the API", t, func() {
		f := newFixture(t, api.WithMaxBodyBytes(256))

		Convey("The catalog lists every kind and filters by domain", func() {
			rec := f.do(http.MethodGet, "/api/v1/catalog", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			all := decode(rec)
			So(all["total"], ShouldEqual, 31.0)

			rec = f.do(http.MethodGet, "/api/v1/catalog?domain=finance", "", nil)
			So(decode(rec)["total"], ShouldEqual, 4.0)
		})

		Convey("A sort renders synchronously", func() {
			rec := f.do(http.MethodPost, "/api/v1/render/algorithms/bubble_sort", "", `{"data":[3,1,2]}`)
			So(rec.Code, ShouldEqual, http.StatusOK)
			body := decode(rec)
			So(body["kind"], ShouldEqual, "bubble_sort")
			So(body["frame_count"], ShouldBeGreaterThan, 1.0)
		})

		Convey("Errors map to statuses and codes", func() {
			cases := []struct {
				path   string
				body   string
				status int
				code   string
			}{
				{"/api/v1/render/algorithms/bogo_sort", `{}`, http.StatusNotFound, "unknown_kind"},
				{"/api/v1/render/algorithms/bubble_sort", `{"bogus":1}`, http.StatusBadRequest, "bad_params"},
				{"/api/v1/render/algorithms/bubble_sort", `{"data":[1,2]`, http.StatusBadRequest, "bad_request"},
				{"/api/v1/render/algorithms/bubble_sort", `{"data":[` + strings.Repeat("1,", 200) + `1]}`, http.StatusRequestEntityTooLarge, "limit"},
				{"/api/v1/render/finance/npv", `{"rate":-0.999999,"cash_flows":[1e300,1e300,1e300]}`, http.StatusBadRequest, "bad_params"},
				{"/api/v1/render/math/riemann_sum", `{"function":{"kind":"sin"},"a":0,"b":1,"n":4611686018427387904}`, http.StatusRequestEntityTooLarge, "limit"},
				{"/api/v1/render/chemistry/molar_mass", `{"formula":"((((H99999)99999)99999)99999)99999"}`, http.StatusBadRequest, "bad_params"},
			}
			for _, c := range cases {
				rec := f.do(http.MethodPost, c.path, "", c.body)
				So(rec.Code, ShouldEqual, c.status)
				So(decode(rec)["code"], ShouldEqual, c.code)
			}
		})

		Convey("Unknown routes answer JSON 404", func() {
			rec := f.do(http.MethodGet, "/api/v1/nothing", "", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(decode(rec)["code"], ShouldEqual, "not_found")
		})
	})
}

func TestJobEndpoints(t *testing.T) {
	Convey("Given the API", t, func() {
		f := newFixture(t)
		job := map[string]any{"domain": "algorithms", "kind": "quick_sort", "params": map[string]any{"data": []int{4, 3, 2, 1}}}

		Convey("A submission is accepted and finishes", func() {
			rec := f.do(http.MethodPost, "/api/v1/jobs", "", job)
			So(rec.Code, ShouldEqual, http.StatusAccepted)
			id, _ := decode(rec)["id"].(string)
			So(id, ShouldNotBeEmpty)
			So(rec.Header().Get("Location"), ShouldEqual, "/api/v1/jobs/"+id)

			var status string
			for i := 0; i < 400 && status != "succeeded"; i++ {
				status, _ = decode(f.do(http.MethodGet, "/api/v1/jobs/"+id, "", nil))["status"].(string)
				time.Sleep(5 * time.Millisecond)
			}
			So(status, ShouldEqual, "succeeded")

			rec = f.do(http.MethodGet, "/api/v1/jobs?status=succeeded", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, id)
			So(rec.Body.String(), ShouldNotContainSubstring, `"result"`)
		})

		Convey("A repeated idempotency key returns the original job", func() {
			first := f.do(http.MethodPost, "/api/v1/jobs", "", job, api.IdempotencyHeader, "abc")
			second := f.do(http.MethodPost, "/api/v1/jobs", "", job, api.IdempotencyHeader, "abc")
			So(first.Code, ShouldEqual, http.StatusAccepted)
			So(second.Code, ShouldEqual, http.StatusOK)
			So(decode(second)["id"], ShouldEqual, decode(first)["id"])
		})

		Convey("Invalid submissions are rejected", func() {
			So(f.do(http.MethodPost, "/api/v1/jobs", "", map[string]any{"kind": "quick_sort"}).Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodPost, "/api/v1/jobs", "", map[string]any{"domain": "math", "kind": "nope"}).Code, ShouldEqual, http.StatusNotFound)
			So(f.do(http.MethodPost, "/api/v1/jobs", "", job, api.IdempotencyHeader, strings.Repeat("k", 201)).Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodGet, "/api/v1/jobs?status=lost", "", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(f.do(http.MethodGet, "/api/v1/jobs/unknown", "", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestContentEndpoints(t *testing.T) {
	Convey("Given the API and an admin session", t, func() {
		f := newFixture(t)
		admin := f.login(adminEmail, adminPassword)
		So(admin, ShouldNotBeEmpty)

		Convey("Writes need an editor token", func() {
			So(f.do(http.MethodPost, "/api/v1/subjects", "", map[string]string{"name": "Math"}).Code, ShouldEqual, http.StatusUnauthorized)
			So(f.do(http.MethodPost, "/api/v1/subjects", "garbage", map[string]string{"name": "Math"}).Code, ShouldEqual, http.StatusUnauthorized)

			rec := f.do(http.MethodPost, "/admin/users", admin, map[string]string{
				"email": "viewer@visualverse.test", "password": "viewer-password", "role": "viewer",
			})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			viewer := f.login("viewer@visualverse.test", "viewer-password")
			rec = f.do(http.MethodPost, "/api/v1/subjects", viewer, map[string]string{"name": "Math"})
			So(rec.Code, ShouldEqual, http.StatusForbidden)
			So(decode(rec)["code"], ShouldEqual, "forbidden")
		})

		Convey("The hierarchy can be built, read and torn down", func() {
			rec := f.do(http.MethodPost, "/api/v1/subjects", admin, map[string]string{"name": "Computer Science"})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			subject := decode(rec)["id"].(string)

			rec = f.do(http.MethodPost, "/api/v1/courses", admin, map[string]string{"subject_id": subject, "title": "Algorithms", "level": "beginner"})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			course := decode(rec)["id"].(string)

			mk := func(name, kind string) string {
				rec := f.do(http.MethodPost, "/api/v1/concepts", admin, map[string]string{
					"course_id": course, "name": name, "domain": "algorithms", "render_kind": kind,
				})
				So(rec.Code, ShouldEqual, http.StatusCreated)
				return decode(rec)["id"].(string)
			}
			arrays := mk("Arrays", "linear_search")
			sorting := mk("Sorting", "bubble_sort")
			merge := mk("Merge sort", "merge_sort")

			So(f.do(http.MethodPost, "/api/v1/concepts/"+sorting+"/prerequisites", admin, map[string]string{"requires_id": arrays}).Code, ShouldEqual, http.StatusNoContent)
			So(f.do(http.MethodPost, "/api/v1/concepts/"+merge+"/prerequisites", admin, map[string]string{"requires_id": sorting}).Code, ShouldEqual, http.StatusNoContent)

			rec = f.do(http.MethodPost, "/api/v1/concepts/"+arrays+"/prerequisites", admin, map[string]string{"requires_id": merge})
			So(rec.Code, ShouldEqual, http.StatusConflict)
			So(decode(rec)["code"], ShouldEqual, "cycle")

			rec = f.do(http.MethodGet, "/api/v1/concepts/"+merge+"/learning-path", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			var path []struct {
				Name string `json:"name"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &path), ShouldBeNil)
			So(len(path), ShouldEqual, 3)
			So(path[0].Name, ShouldEqual, "Arrays")
			So(path[2].Name, ShouldEqual, "Merge sort")

			rec = f.do(http.MethodGet, "/api/v1/concepts/search?q=SORT", "", nil)
			So(decode(rec)["total_items"], ShouldEqual, 2.0)
			So(f.do(http.MethodGet, "/api/v1/concepts/search", "", nil).Code, ShouldEqual, http.StatusBadRequest)

			rec = f.do(http.MethodGet, "/api/v1/subjects/"+subject+"/courses?page=1&page_size=5", "", nil)
			So(decode(rec)["total_items"], ShouldEqual, 1.0)
			So(f.do(http.MethodGet, "/api/v1/subjects?page=zero", "", nil).Code, ShouldEqual, http.StatusBadRequest)

			rec = f.do(http.MethodPut, "/api/v1/subjects/"+subject, admin, map[string]string{"name": "CS"})
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["name"], ShouldEqual, "CS")

			So(f.do(http.MethodDelete, "/api/v1/courses/"+course, admin, nil).Code, ShouldEqual, http.StatusConflict)
			for _, id := range []string{arrays, sorting, merge} {
				So(f.do(http.MethodDelete, "/api/v1/concepts/"+id, admin, nil).Code, ShouldEqual, http.StatusNoContent)
			}
			So(f.do(http.MethodDelete, "/api/v1/courses/"+course, admin, nil).Code, ShouldEqual, http.StatusNoContent)
			So(f.do(http.MethodDelete, "/api/v1/subjects/"+subject, admin, nil).Code, ShouldEqual, http.StatusNoContent)
			So(f.do(http.MethodGet, "/api/v1/subjects/"+subject, "", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Concepts must link to a renderable kind", func() {
			rec := f.do(http.MethodPost, "/api/v1/subjects", admin, map[string]string{"name": "Physics"})
			subject := decode(rec)["id"].(string)
			rec = f.do(http.MethodPost, "/api/v1/courses", admin, map[string]string{"subject_id": subject, "title": "Mechanics"})
			course := decode(rec)["id"].(string)

			rec = f.do(http.MethodPost, "/api/v1/concepts", admin, map[string]string{
				"course_id": course, "name": "Warp", "domain": "physics", "render_kind": "warp_drive",
			})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(rec)["code"], ShouldEqual, "invalid")

			rec = f.do(http.MethodPost, "/api/v1/courses", admin, map[string]string{"subject_id": "not-a-uuid", "title": "x"})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAdminEndpoints(t *testing.T) {
	Convey("Given the API", t, func() {
		f := newFixture(t)

		Convey("A bad password is unauthorized", func() {
			rec := f.do(http.MethodPost, "/admin/login", "", map[string]string{"email": adminEmail, "password": "wrong-password"})
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("An admin can manage users and read the dashboard", func() {
			token := f.login(adminEmail, adminPassword)

			rec := f.do(http.MethodGet, "/admin/me", token, nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			me := decode(rec)["user"].(map[string]any)
			So(me["email"], ShouldEqual, adminEmail)
			So(rec.Body.String(), ShouldNotContainSubstring, "password")

			So(f.do(http.MethodDelete, "/admin/users/"+me["id"].(string), token, nil).Code, ShouldEqual, http.StatusBadRequest)

			rec = f.do(http.MethodPost, "/admin/users", token, map[string]string{"email": "ed@visualverse.test", "password": "editor-password", "role": "editor"})
			So(rec.Code, ShouldEqual, http.StatusCreated)
			editorID := decode(rec)["id"].(string)
			So(f.do(http.MethodPost, "/admin/users", token, map[string]string{"email": "ed@visualverse.test", "password": "editor-password"}).Code, ShouldEqual, http.StatusConflict)
			So(f.do(http.MethodPost, "/admin/users", token, map[string]string{"email": "short@visualverse.test", "password": "x"}).Code, ShouldEqual, http.StatusBadRequest)

			editor := f.login("ed@visualverse.test", "editor-password")
			So(f.do(http.MethodGet, "/admin/users", editor, nil).Code, ShouldEqual, http.StatusForbidden)
			So(f.do(http.MethodGet, "/admin/dashboard/stats", editor, nil).Code, ShouldEqual, http.StatusOK)

			rec = f.do(http.MethodGet, "/admin/users", token, nil)
			var users []map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &users), ShouldBeNil)
			So(len(users), ShouldEqual, 2)

			rec = f.do(http.MethodGet, "/admin/dashboard/stats", token, nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			stats := decode(rec)
			So(stats["users"], ShouldEqual, 2.0)
			So(stats["active_sessions"], ShouldEqual, 2.0)
			So(stats["catalog_kinds"], ShouldEqual, 31.0)

			So(f.do(http.MethodDelete, "/admin/users/"+editorID, token, nil).Code, ShouldEqual, http.StatusNoContent)
			So(f.do(http.MethodGet, "/admin/me", editor, nil).Code, ShouldEqual, http.StatusUnauthorized)

			So(f.do(http.MethodPost, "/admin/logout", token, nil).Code, ShouldEqual, http.StatusNoContent)
			So(f.do(http.MethodGet, "/admin/me", token, nil).Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestOpsEndpoints(t *testing.T) {
	Convey("Given the API mounted on a ServeMux", t, func() {
		f := newFixture(t)
		srv := api.NewServer(api.Deps{Renderer: f.svc, Jobs: f.svc, Content: f.svc.Content(), Admin: f.svc.Auth(), Stats: f.svc, Dashboard: f.svc})
		mux := http.NewServeMux()
		srv.Register(f.ctx, mux)
		f.handler = mux

		Convey("Stats report the running pipeline", func() {
			rec := f.do(http.MethodGet, "/stats", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(decode(rec)["catalog_kinds"], ShouldEqual, 31.0)
		})

		Convey("Metrics are exposed", func() {
			f.do(http.MethodGet, "/api/v1/catalog", "", nil)
			rec := f.do(http.MethodGet, "/healthz", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldContainSubstring, "visualverse_")
		})

		Convey("The dashboard page is served", func() {
			rec := f.do(http.MethodGet, "/dashboard", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "text/html")
		})

		Convey("Stats that cannot be encoded answer 500 with an error body", func() {
			broken := api.NewServer(api.Deps{Renderer: f.svc, Jobs: f.svc, Content: f.svc.Content(), Admin: f.svc.Auth(), Stats: nanStats{}, Dashboard: f.svc})
			f.handler = broken.Routes()
			rec := f.do(http.MethodGet, "/stats", "", nil)
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			body := decode(rec)
			So(body["code"], ShouldEqual, "internal_error")
			So(body["message"], ShouldEqual, http.StatusText(http.StatusInternalServerError))
		})
	})
}

type nanStats struct{}

func (nanStats) GetStats() types.ServiceStats {
	return types.ServiceStats{Started: true, UptimeSeconds: math.NaN()}
}

type streamMsg struct {
	Type    string          `json:"type"`
	Index   int             `json:"index"`
	Total   int             `json:"total"`
	Sent    int             `json:"sent"`
	Stopped bool            `json:"stopped"`
	Code    string          `json:"code"`
	Frame   json.RawMessage `json:"frame"`
}

func TestStream(t *testing.T) {
	Convey("Given the API behind a real listener", t, func() {
		f := newFixture(t)
		ts := httptest.NewServer(f.handler)
		defer ts.Close()
		base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/stream/"

		dial := func(path string) *websocket.Conn {
			conn, _, err := websocket.Dial(f.ctx, base+path, nil)
			So(err, ShouldBeNil)
			return conn
		}

		Convey("Every frame arrives in order, then done", func() {
			conn := dial("algorithms/insertion_sort?" + url.Values{"interval_ms": {"10"}, "params": {`{"data":[3,2,1]}`}}.Encode())
			defer conn.CloseNow()

			var frames int
			var last streamMsg
			for {
				var m streamMsg
				So(wsjson.Read(f.ctx, conn, &m), ShouldBeNil)
				if m.Type != "frame" {
					last = m
					break
				}
				So(m.Index, ShouldEqual, frames)
				frames++
			}
			So(last.Type, ShouldEqual, "done")
			So(last.Sent, ShouldEqual, frames)
			So(last.Total, ShouldEqual, frames)
			So(last.Stopped, ShouldBeFalse)
		})

		Convey("Stop ends playback early", func() {
			conn := dial("physics/projectile?" + url.Values{"interval_ms": {"50"}, "params": {`{"speed":20,"angle_deg":45}`}}.Encode())
			defer conn.CloseNow()

			var m streamMsg
			So(wsjson.Read(f.ctx, conn, &m), ShouldBeNil)
			So(m.Type, ShouldEqual, "frame")
			So(conn.Write(f.ctx, websocket.MessageText, []byte("stop")), ShouldBeNil)
			for m.Type == "frame" {
				So(wsjson.Read(f.ctx, conn, &m), ShouldBeNil)
			}
			So(m.Type, ShouldEqual, "done")
			So(m.Stopped, ShouldBeTrue)
			So(m.Sent, ShouldBeLessThan, m.Total)
		})

		Convey("Render failures arrive as an error message", func() {
			conn := dial("chemistry/alchemy")
			defer conn.CloseNow()

			var m streamMsg
			So(wsjson.Read(f.ctx, conn, &m), ShouldBeNil)
			So(m.Type, ShouldEqual, "error")
			So(m.Code, ShouldEqual, "unknown_kind")
		})

		Convey("A malformed interval is refused before upgrading", func() {
			resp, err := http.Get(ts.URL + "/api/v1/stream/algorithms/bubble_sort?interval_ms=soon")
			So(err, ShouldBeNil)
			defer resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestClampInterval(t *testing.T) {
	Convey("Stream intervals are bounded", t, func() {
		So(api.ClampInterval(0), ShouldEqual, api.MinStreamInterval)
		So(api.ClampInterval(time.Hour), ShouldEqual, api.MaxStreamInterval)
		So(api.ClampInterval(100*time.Millisecond), ShouldEqual, 100*time.Millisecond)
	})
}
