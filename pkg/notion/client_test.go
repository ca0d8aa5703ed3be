package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if resp := args.Get(0); resp != nil {
		return resp.(*notionapi.DatabaseQueryResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	if page := args.Get(0); page != nil {
		return page.(*notionapi.Page), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) ArchivePage(ctx context.Context, pageID string) error {
	return m.Called(ctx, pageID).Error(0)
}

func TestQueryAll_FollowsPagination(t *testing.T) {
	ctx := context.Background()
	mc := &mockClient{}

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}, {ID: "p2"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("cursor-2"),
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("cursor-2")
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p3"}},
		HasMore: false,
	}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, notionapi.ObjectID("p1"), pages[0].ID)
	assert.Equal(t, notionapi.ObjectID("p3"), pages[2].ID)
	mc.AssertExpectations(t)
}

func TestQueryAll_CarriesFilterAcrossPages(t *testing.T) {
	ctx := context.Background()
	mc := &mockClient{}

	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Source",
			Select:   &notionapi.SelectFilterCondition{Equals: "БАЗА"},
		},
	}

	hasSourceFilter := func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == "Source" && pf.Select != nil && pf.Select.Equals == "БАЗА"
	}

	mc.On("QueryDatabase", ctx, "db-crm", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == "" && hasSourceFilter(req)
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("c2"),
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "db-crm", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("c2") && hasSourceFilter(req)
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p2"}},
	}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-crm", filter)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	mc.AssertExpectations(t)
}

func TestQueryAll_ErrorPropagates(t *testing.T) {
	ctx := context.Background()
	mc := &mockClient{}
	mc.On("QueryDatabase", ctx, "db-err", mock.Anything).
		Return(nil, eris.New("boom")).Once()

	_, err := QueryAll(ctx, mc, "db-err", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestQueryClientBase_AppliesSourceFilter(t *testing.T) {
	ctx := context.Background()
	mc := &mockClient{}
	mc.On("QueryDatabase", ctx, "db-crm", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		pf, ok := req.Filter.(notionapi.PropertyFilter)
		return ok && pf.Property == "Source" && pf.Select != nil && pf.Select.Equals == "БАЗА"
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p1"}},
	}, nil).Once()

	pages, err := QueryClientBase(ctx, mc, "db-crm")
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	mc.AssertExpectations(t)
}
