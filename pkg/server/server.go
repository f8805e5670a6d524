// Package server exposes the directory queries as use-cases rendered to
// transport view models, and registers them as MCP tools.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jamesprial/colony-directory/pkg/directory"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type Server struct {
	dir    *directory.Directory
	logger *slog.Logger
}

type CompanyEmployeesParams struct {
	Company string `json:"company" jsonschema:"Exact, case-sensitive company name"`
}

type CommonFriendsParams struct {
	People []string `json:"people" jsonschema:"Ids of at least two distinct people"`
}

type FavouriteFoodsParams struct {
	Person string `json:"person" jsonschema:"Id of the person"`
}

// NewServer creates a new directory query server
func NewServer(dir *directory.Directory) *Server {
	return NewServerWithLogger(dir, slog.Default())
}

// NewServerWithLogger creates a new directory query server that logs to logger
func NewServerWithLogger(dir *directory.Directory, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{dir: dir, logger: logger}
}

// Ready reports whether a dataset has been published.
func (s *Server) Ready() bool {
	return s.dir.Loaded()
}

// CompanyEmployees lists the employees of the named company.
func (s *Server) CompanyEmployees(ctx context.Context, name string) (result CompanyEmployeesResult, err error) {
	defer s.track(ctx, OpCompanyEmployees, time.Now(), &err)

	if err := ValidateCompanyName(name); err != nil {
		return CompanyEmployeesResult{}, err
	}

	people, err := s.dir.EmployeesOf(name)
	if err != nil {
		return CompanyEmployeesResult{}, err
	}

	return CompanyEmployeesResult{
		Company:   name,
		Employees: toEmployees(people),
	}, nil
}

// CommonFriends describes the requested people and lists the alive,
// brown-eyed friends they all share.
func (s *Server) CommonFriends(ctx context.Context, params CommonFriendsParams) (result CommonFriendsResult, err error) {
	defer s.track(ctx, OpCommonFriends, time.Now(), &err)

	if err := ValidateCommonFriendsParams(params); err != nil {
		return CommonFriendsResult{}, err
	}

	ids := make([]string, len(params.People))
	for i, id := range params.People {
		ids[i] = canonicalPersonID(id)
	}

	// Details and friends must come from the same cycle.
	snap := s.dir.Current()

	friends, err := snap.CommonAliveBrownEyedFriends(ids)
	if err != nil {
		return CommonFriendsResult{}, err
	}

	details := make([]IndividualDetails, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		p, err := snap.Person(id)
		if err != nil {
			return CommonFriendsResult{}, err
		}
		details = append(details, toDetails(p))
	}

	return CommonFriendsResult{
		IndividualsDetails: details,
		CommonFriends:      toFriends(friends),
	}, nil
}

// FavouriteFoods returns a person's favourite foods grouped by kind.
func (s *Server) FavouriteFoods(ctx context.Context, personID string) (result FavouriteFoodsResult, err error) {
	defer s.track(ctx, OpFavouriteFoods, time.Now(), &err)

	if err := ValidatePersonID(personID); err != nil {
		return FavouriteFoodsResult{}, err
	}
	personID = canonicalPersonID(personID)

	snap := s.dir.Current()

	p, err := snap.Person(personID)
	if err != nil {
		return FavouriteFoodsResult{}, err
	}
	foods, err := snap.FavoriteFoodsOf(personID)
	if err != nil {
		return FavouriteFoodsResult{}, err
	}

	groups := directory.GroupFoods(foods)
	return FavouriteFoodsResult{
		Name:          p.Name,
		Age:           p.Age,
		Fruits:        groups[directory.FoodFruit],
		Vegetables:    groups[directory.FoodVegetable],
		Unclassifieds: groups[directory.FoodUnclassified],
	}, nil
}

// canonicalPersonID rewrites any accepted guid spelling (upper case, no
// hyphens, braces, urn prefix) to the lower-case hyphenated form people are
// indexed by. Other ids pass through unchanged.
func canonicalPersonID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return id
}

func (s *Server) track(ctx context.Context, op string, start time.Time, errp *error) {
	err := *errp
	observe(op, start, err)

	if err != nil {
		s.logger.DebugContext(ctx, "query rejected",
			slog.String("operation", op),
			slog.String("outcome", outcome(err)),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.DebugContext(ctx, "query served",
		slog.String("operation", op),
		slog.Duration("duration", time.Since(start)),
	)
}

// RegisterTools registers all MCP tools with the server
func (s *Server) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        OpCompanyEmployees,
			Description: "List the employees of a company, in ingestion order",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params CompanyEmployeesParams) (*mcp.CallToolResult, any, error) {
			return s.handleCompanyEmployees(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        OpCommonFriends,
			Description: "Describe two or more people and list the alive, brown-eyed friends they all share",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params CommonFriendsParams) (*mcp.CallToolResult, any, error) {
			return s.handleCommonFriends(ctx, params)
		},
	)

	mcp.AddTool(mcpServer,
		&mcp.Tool{
			Name:        OpFavouriteFoods,
			Description: "List a person's favourite foods grouped into fruits, vegetables and unclassified",
		},
		func(ctx context.Context, req *mcp.CallToolRequest, params FavouriteFoodsParams) (*mcp.CallToolResult, any, error) {
			return s.handleFavouriteFoods(ctx, params)
		},
	)
}

func (s *Server) handleCompanyEmployees(ctx context.Context, params CompanyEmployeesParams) (*mcp.CallToolResult, any, error) {
	res, err := s.CompanyEmployees(ctx, params.Company)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handleCommonFriends(ctx context.Context, params CommonFriendsParams) (*mcp.CallToolResult, any, error) {
	res, err := s.CommonFriends(ctx, params)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find common friends: %w", err)
	}
	return jsonResult(res)
}

func (s *Server) handleFavouriteFoods(ctx context.Context, params FavouriteFoodsParams) (*mcp.CallToolResult, any, error) {
	res, err := s.FavouriteFoods(ctx, params.Person)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list favourite foods: %w", err)
	}
	return jsonResult(res)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonData)},
		},
	}, nil, nil
}
