package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// NetworkService handles network exploration.
type NetworkService struct {
	c *Client
}

// Person explores the network around one person.
func (s *NetworkService) Person(ctx context.Context, id int64, opts NetworkOptions) (*NetworkResult, error) {
	params := url.Values{}
	if opts.Depth > 0 {
		params.Set("depth", strconv.Itoa(opts.Depth))
	}
	setTypes(params, opts.RelationTypes)
	if opts.IncludeReciprocal {
		params.Set("reciprocal", "true")
	}

	var resp NetworkResult
	if err := s.c.get(ctx, "/api/v1/network/"+strconv.FormatInt(id, 10), params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Explore runs a multi-seed exploration.
func (s *NetworkService) Explore(ctx context.Context, req ExploreRequest) (*NetworkResult, error) {
	var resp NetworkResult
	if err := s.c.post(ctx, "/api/v1/network/explore", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Recursive returns the network within opts.Degrees hops via the single-query traversal.
func (s *NetworkService) Recursive(ctx context.Context, id int64, opts RecursiveOptions) (*RecursiveResult, error) {
	params := url.Values{}
	if opts.Degrees > 0 {
		params.Set("degrees", strconv.Itoa(opts.Degrees))
	}
	if opts.MaxNodes > 0 {
		params.Set("max_nodes", strconv.Itoa(opts.MaxNodes))
	}
	setTypes(params, opts.RelationTypes)
	if opts.IncludeReciprocal {
		params.Set("reciprocal", "true")
	}

	var resp RecursiveResult
	path := fmt.Sprintf("/api/v1/network/%d/recursive", id)
	if err := s.c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns relation counts for one person.
func (s *NetworkService) Stats(ctx context.Context, id int64, includeReciprocal bool) (*EdgeStats, error) {
	params := url.Values{}
	if includeReciprocal {
		params.Set("reciprocal", "true")
	}

	var resp EdgeStats
	if err := s.c.get(ctx, fmt.Sprintf("/api/v1/network/%d/stats", id), params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Path finds a shortest chain of relations between two persons.
func (s *NetworkService) Path(ctx context.Context, fromID, toID int64, types []string) (*PathResult, error) {
	params := url.Values{}
	setTypes(params, types)

	var resp PathResult
	if err := s.c.get(ctx, fmt.Sprintf("/api/v1/path/%d/%d", fromID, toID), params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Warm asks the server to run an exploration in the background and cache it.
func (s *NetworkService) Warm(ctx context.Context, req ExploreRequest) error {
	return s.c.post(ctx, "/api/v1/network/warm", req, nil)
}

func setTypes(params url.Values, types []string) {
	if len(types) > 0 {
		params.Set("types", strings.Join(types, ","))
	}
}
