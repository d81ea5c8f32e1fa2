package ckfksc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"crazycar-stats/internal/components/captcha"
	"crazycar-stats/internal/components/telemetry"
	"crazycar-stats/internal/crawl"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const captchaImage = "\x89PNG fake captcha"

func listingPage(active int, last bool, rows string) string {
	next := ""
	if !last {
		next = fmt.Sprintf(`<li><a href="/user/game?pageNum=%d">%d</a></li>`, active+1, active+1)
	}
	return fmt.Sprintf(`<html><body>
<table class="table">
  <thead><tr><th>模式</th><th>地图</th><th>名次</th><th>成绩</th><th>经验</th><th>金币</th><th>开始时间</th><th>操作</th></tr></thead>
  <tbody>%s</tbody>
</table>
<ul class="pagination">
  <li><a href="#">&laquo;</a></li>
  <li class="active"><a href="#">%d</a></li>
  %s
</ul>
</body></html>`, rows, active, next)
}

func listingRow(m, start, detail string) string {
	anchor := ""
	if detail != "" {
		anchor = fmt.Sprintf(`<a href="%s">详情</a>`, detail)
	}
	return fmt.Sprintf(
		`<tr><td>组队竞速</td><td>%s&nbsp;</td><td>1</td><td>01:02.03</td><td>10</td><td>20</td><td>%s</td><td><a href="#">回放</a> %s</td></tr>`,
		m, start, anchor,
	)
}

type fakeSite struct {
	mu       sync.Mutex
	captchas []string
	form     map[string]string
	referer  string
	agent    string
}

func (f *fakeSite) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "session-1", Path: "/"})
		fmt.Fprint(w, "<html>login</html>")
	})
	mux.HandleFunc("GET /captcha", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.captchas = append(f.captchas, r.URL.Query().Get("r"))
		f.mu.Unlock()
		if _, err := r.Cookie("JSESSIONID"); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("content-type", "image/png")
		fmt.Fprint(w, captchaImage)
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		f.form = map[string]string{}
		for key := range r.PostForm {
			f.form[key] = r.PostForm.Get(key)
		}
		f.referer = r.Header.Get("referer")
		f.agent = r.Header.Get("x-requested-with")
		f.mu.Unlock()

		if r.PostForm.Get("captcha") != "AB12" {
			fmt.Fprint(w, `{"respCo":"1001","respMsg":"验证码错误"}`)
			return
		}
		fmt.Fprint(w, `{"respCo":"0000","respMsg":"成功"}`)
	})
	mux.HandleFunc("GET /user/game", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("gameType") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch r.URL.Query().Get("pageNum") {
		case "1":
			fmt.Fprint(w, listingPage(1, false,
				listingRow("香港", "12-01 20:30", "/user/game/detail?id=2")+
					listingRow("长城", "12-01 20:25", "")+
					`<tr></tr>`,
			))
		case "2":
			fmt.Fprint(w, listingPage(2, true, listingRow("雪邦", "12-01 20:20", "detail?id=1")))
		default:
			fmt.Fprint(w, listingPage(3, true, `<tr><td colspan="8">没有对局</td></tr>`))
		}
	})
	mux.HandleFunc("GET /user/game/detail", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "2":
			fmt.Fprint(w, `<table class="table">
<thead><tr><th>角色</th><th>车辆</th><th>队伍</th><th>排名</th><th>成绩</th><th>经验</th><th>金币</th></tr></thead>
<tbody>
<tr><td>十郎</td><td>黑武士</td><td>红队</td><td>1</td><td>01:02.03</td><td>10</td><td>20</td></tr>
<tr><td>凌霄&nbsp;</td><td>黑武士</td><td>蓝队</td><td>2</td><td>未完成</td><td>5</td><td>8</td></tr>
</tbody></table>`)
		case "3":
			fmt.Fprint(w, `<p>维护中</p>`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func newTestClient(t *testing.T) (*Client, *fakeSite, *telemetry.Recorder) {
	site := &fakeSite{}
	server := httptest.NewServer(site.handler())
	t.Cleanup(server.Close)

	tel := telemetry.NewRecorder()
	client, err := NewClient(ClientOptions{BaseUrl: server.URL}, tel)
	require.NoError(t, err)
	return client, site, tel
}

func TestGameTypeID(t *testing.T) {
	require.Equal(t, "0", GameTypeID("个人竞速"))
	require.Equal(t, "1", GameTypeID("组队竞速"))
	require.Equal(t, "5", GameTypeID("组队疾爽"))
	require.Equal(t, "7", GameTypeID("7"))
}

func TestLogin(t *testing.T) {
	client, site, _ := newTestClient(t)

	var seen []byte
	recognizer := captcha.RecognizerFunc(func(ctx context.Context, image []byte) (string, error) {
		seen = image
		return "AB12", nil
	})

	err := client.Login(context.Background(), "13800000000", "hunter2", recognizer)
	require.NoError(t, err)
	require.Equal(t, captchaImage, string(seen))

	require.Len(t, site.captchas, 1)
	require.NotEmpty(t, site.captchas[0])
	require.Empty(t, cmp.Diff(map[string]string{
		"areaCode": "86",
		"mobileNo": "13800000000",
		"password": "hunter2",
		"captcha":  "AB12",
	}, site.form))
	require.Equal(t, client.BaseUrl.String()+"/login", site.referer)
	require.Equal(t, "XMLHttpRequest", site.agent)
}

func TestLoginRejected(t *testing.T) {
	client, _, tel := newTestClient(t)

	err := client.Login(context.Background(), "13800000000", "hunter2", captcha.RecognizerFunc(
		func(context.Context, []byte) (string, error) { return "ZZZZ", nil },
	))
	require.ErrorIs(t, err, ErrLoginFailed)
	require.Contains(t, err.Error(), "验证码错误")
	require.Len(t, tel.Warnings(), 1)
}

func TestLoginRecognizerFailure(t *testing.T) {
	client, site, _ := newTestClient(t)

	err := client.Login(context.Background(), "13800000000", "hunter2", captcha.RecognizerFunc(
		func(context.Context, []byte) (string, error) { return "", captcha.ErrEmptyAnswer },
	))
	require.ErrorIs(t, err, ErrLoginFailed)
	require.ErrorIs(t, err, captcha.ErrEmptyAnswer)
	require.Nil(t, site.form)
}

func TestFetchListing(t *testing.T) {
	client, _, _ := newTestClient(t)
	ctx := context.Background()

	page, err := client.FetchListing(ctx, "组队竞速", 1)
	require.NoError(t, err)
	require.True(t, page.HasNext)
	diff := cmp.Diff([]crawl.ListingRow{
		{
			Mode:          "组队竞速",
			Map:           "香港",
			StartTime:     "12-01 20:30",
			DetailLocator: client.BaseUrl.String() + "/user/game/detail?id=2",
		},
		{Mode: "组队竞速", Map: "长城", StartTime: "12-01 20:25"},
	}, page.Rows)
	require.Empty(t, diff)

	page, err = client.FetchListing(ctx, "1", 2)
	require.NoError(t, err)
	require.False(t, page.HasNext)
	require.Len(t, page.Rows, 1)
	require.Equal(t, client.BaseUrl.String()+"/detail?id=1", page.Rows[0].DetailLocator)

	page, err = client.FetchListing(ctx, "组队竞速", 3)
	require.NoError(t, err)
	require.Empty(t, page.Rows)
	require.False(t, page.HasNext)
}

func TestFetchListingBadStatus(t *testing.T) {
	client, _, tel := newTestClient(t)
	_, err := client.FetchListing(context.Background(), "个人竞速", 1)
	require.Error(t, err)
	require.Len(t, tel.Broken(), 1)
}

func TestFetchDetail(t *testing.T) {
	client, _, _ := newTestClient(t)
	ctx := context.Background()
	base := client.BaseUrl.String()

	page, err := client.FetchDetail(ctx, base+"/user/game/detail?id=2")
	require.NoError(t, err)
	require.Equal(t, []string{"角色", "车辆", "队伍", "排名", "成绩", "经验", "金币"}, page.Header)
	require.Equal(t, [][]string{
		{"十郎", "黑武士", "红队", "1", "01:02.03", "10", "20"},
		{"凌霄", "黑武士", "蓝队", "2", "未完成", "5", "8"},
	}, page.Rows)

	_, err = client.FetchDetail(ctx, base+"/user/game/detail?id=3")
	require.True(t, errors.Is(err, ErrMissingTable))

	_, err = client.FetchDetail(ctx, base+"/user/game/detail?id=404")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "404"))
}
