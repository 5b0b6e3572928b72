package congress

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"capitolwatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func newRosterServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/congress", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"congress": {"number": 119}}`)
	})
	mux.HandleFunc("/member/congress/119", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		offset := r.URL.Query().Get("offset")
		if offset == "0" || offset == "" {
			fmt.Fprint(w, `{
				"members": [
					{
						"bioguideId": "P000197",
						"name": "Pelosi, Nancy",
						"partyName": "Democratic",
						"state": "California",
						"district": 11,
						"terms": {"item": [
							{"chamber": "House of Representatives", "startYear": 1987}
						]}
					}
				],
				"pagination": {"count": 2, "next": "https://api.congress.gov/v3/member/congress/119?offset=250"}
			}`)
			return
		}
		fmt.Fprint(w, `{
			"members": [
				{
					"bioguideId": "T000278",
					"name": "Tuberville, Tommy",
					"partyName": "Republican",
					"state": "Alabama",
					"terms": {"item": [
						{"chamber": "Senate", "startYear": 2021}
					]}
				}
			],
			"pagination": {"count": 2}
		}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGetAllMembers(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:congress")
	defer cleanup()

	server := newRosterServer(t)
	client := NewClient("test-key")
	client.SetBaseURL(server.URL)

	ctx := context.Background()
	require.Equal(t, 119, client.GetCurrentCongress(ctx))

	members, err := client.GetAllMembers(ctx, 0)
	require.NoError(t, err)
	require.Len(t, members, 2)

	require.Equal(t, "Pelosi, Nancy", members[0].Name)
	require.Equal(t, "House", members[0].Chamber)
	require.Equal(t, 11, members[0].District)
	require.Equal(t, "Tuberville, Tommy", members[1].Name)
	require.Equal(t, "Senate", members[1].Chamber)
}

func TestGetCurrentCongressFallback(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:congress")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient("test-key")
	client.SetBaseURL(server.URL)
	require.Equal(t, FallbackCongress, client.GetCurrentCongress(context.Background()))
}

func TestFindMember(t *testing.T) {
	members := []Member{
		{Name: "Pelosi, Nancy", State: "California"},
		{Name: "Tuberville, Tommy", State: "Alabama"},
		{Name: "Warren, Elizabeth", State: "Massachusetts"},
	}

	best, score := FindMember(members, "Warren, Elisabeth")
	require.Equal(t, "Warren, Elizabeth", best.Name)
	require.Greater(t, score, 0.9)

	best, _ = FindMember(members, "Pelosi")
	require.Equal(t, "Pelosi, Nancy", best.Name)
}
