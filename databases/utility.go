package databases

import "go.mongodb.org/mongo-driver/mongo/options"

type mongoPaginate struct {
	limit int64
	page  int64
}

func newMongoPaginate(limit, page int) *mongoPaginate {
	return &mongoPaginate{
		limit: int64(limit),
		page:  int64(page),
	}
}

func (mp *mongoPaginate) getPaginatedOpts() *options.FindOptions {
	l := mp.limit
	skip := mp.page*mp.limit - mp.limit
	fOpt := options.FindOptions{Limit: &l, Skip: &skip}

	return &fOpt
}

// PageOpts builds find options for a 1-based page over a collection
func PageOpts(limit, page int) *options.FindOptions {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}
	return newMongoPaginate(limit, page).getPaginatedOpts()
}
