package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWorkRefsAreDistinctTokens(t *testing.T) {
	uow := NewUnitOfWork()
	ref1 := uow.RegisterCreate("Quote", map[string]interface{}{"Name": "Q1"})
	ref2 := uow.RegisterCreate("Quote", map[string]interface{}{"Name": "Q2"})

	assert.NotEqual(t, ref1, ref2)
	assert.Equal(t, "ref1", ref1.Key())
	assert.Equal(t, "ref2", ref2.Key())
	assert.Equal(t, 2, uow.Len())
}

func TestCommitSerializesForwardForeignKey(t *testing.T) {
	var captured compositeGraphRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"graphs":[{"graphId":"uow","isSuccessful":true,"graphResponse":{"compositeResponse":[` +
			`{"referenceId":"ref1","httpStatusCode":201,"body":{"id":"0Q0A","success":true}},` +
			`{"referenceId":"ref2","httpStatusCode":201,"body":{"id":"0QLA","success":true}}]}}]}`))
	}))
	defer server.Close()

	client := testClient(t, server)

	uow := NewUnitOfWork()
	quoteRef := uow.RegisterCreate("Quote", map[string]interface{}{"Name": "Q1"})
	uow.RegisterCreate("QuoteLineItem", map[string]interface{}{
		"QuoteId":   quoteRef, // 前向外键：父记录尚未提交
		"UnitPrice": 90.0,
	})

	result, err := client.CommitUnitOfWork(context.Background(), uow)
	require.NoError(t, err)

	// Ref 值序列化为占位符
	require.Len(t, captured.Graphs, 1)
	subRequests := captured.Graphs[0].CompositeRequest
	require.Len(t, subRequests, 2)
	assert.Equal(t, "ref1", subRequests[0].ReferenceID)
	assert.Equal(t, "@{ref1.id}", subRequests[1].Body["QuoteId"])
	assert.Equal(t, "/services/data/v62.0/sobjects/Quote", subRequests[0].URL)

	outcome, ok := result.Outcome(quoteRef)
	require.True(t, ok)
	assert.True(t, outcome.Success())
	assert.Equal(t, "0Q0A", outcome.ID)
}

func TestCommitReportsPerReferenceOutcomes(t *testing.T) {
	// 同一提交里：一条成功、一条失败，结果按引用句柄各自寻址
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"graphs":[{"graphId":"uow","isSuccessful":false,"graphResponse":{"compositeResponse":[` +
			`{"referenceId":"ref1","httpStatusCode":201,"body":{"id":"0Q0A","success":true}},` +
			`{"referenceId":"ref2","httpStatusCode":400,"body":[{"message":"Required fields are missing","errorCode":"REQUIRED_FIELD_MISSING"}]}` +
			`]}}]}`))
	}))
	defer server.Close()

	client := testClient(t, server)

	uow := NewUnitOfWork()
	okRef := uow.RegisterCreate("Quote", map[string]interface{}{"Name": "Q1"})
	badRef := uow.RegisterCreate("Quote", map[string]interface{}{})

	result, err := client.CommitUnitOfWork(context.Background(), uow)
	require.NoError(t, err)

	okOutcome, ok := result.Outcome(okRef)
	require.True(t, ok)
	assert.True(t, okOutcome.Success())

	badOutcome, ok := result.Outcome(badRef)
	require.True(t, ok)
	assert.False(t, badOutcome.Success())
	require.Len(t, badOutcome.Errors, 1)
	assert.Equal(t, "REQUIRED_FIELD_MISSING", badOutcome.Errors[0].ErrorCode)
}

func TestCommitEmptyUnitOfWork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("commit must not reach the wire for an empty unit of work")
	}))
	defer server.Close()

	client := testClient(t, server)
	_, err := client.CommitUnitOfWork(context.Background(), NewUnitOfWork())
	assert.Error(t, err)
}
