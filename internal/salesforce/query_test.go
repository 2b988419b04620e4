package salesforce

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgjobs/internal/domains/job"
)

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(&job.SecurityContext{
		AccessToken: "token",
		APIVersion:  "62.0",
		OrgID:       "00D000000000001",
		UserID:      "005000000000001",
		InstanceURL: server.URL,
	})
	require.NoError(t, err)
	return client
}

func TestQueryAllFollowsPagination(t *testing.T) {
	// 两页结果必须拼接，不得静默截断
	mux := http.NewServeMux()
	mux.HandleFunc("/services/data/v62.0/query", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "SELECT Id FROM Account", r.URL.Query().Get("q"))
		w.Write([]byte(`{"totalSize":3,"done":false,"nextRecordsUrl":"/services/data/v62.0/query/01g-2000",` +
			`"records":[{"Id":"001A"},{"Id":"001B"}]}`))
	})
	mux.HandleFunc("/services/data/v62.0/query/01g-2000", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalSize":3,"done":true,"records":[{"Id":"001C"}]}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)
	records, err := client.QueryAll(context.Background(), "SELECT Id FROM Account")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "001A", records[0].Str("Id"))
	assert.Equal(t, "001C", records[2].Str("Id"))
}

func TestQueryAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`[{"message":"unexpected token","errorCode":"MALFORMED_QUERY"}]`))
	}))
	defer server.Close()

	client := testClient(t, server)
	_, err := client.QueryAll(context.Background(), "SELECT bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MALFORMED_QUERY")
}

func TestRecordSubReadsNestedRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalSize":1,"done":true,"records":[` +
			`{"Id":"006A","Name":"Opp A","OpportunityLineItems":{"totalSize":2,"done":true,` +
			`"records":[{"Id":"00kA","UnitPrice":100.5},{"Id":"00kB","UnitPrice":20}]}}]}`))
	}))
	defer server.Close()

	client := testClient(t, server)
	records, err := client.QueryAll(context.Background(), "SELECT ...")
	require.NoError(t, err)
	require.Len(t, records, 1)

	lines := records[0].Sub("OpportunityLineItems")
	require.Len(t, lines, 2)
	assert.Equal(t, "00kA", lines[0].Str("Id"))
	assert.Equal(t, 100.5, lines[0].Float("UnitPrice"))

	// 无嵌套字段时返回 nil
	assert.Nil(t, records[0].Sub("QuoteLineItems"))
}
