package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs
const (
	CatalogResourceURI       = "peptide://catalog"
	compoundResourcePrefix   = "peptide://compounds/"
	CompoundResourceTemplate = compoundResourcePrefix + "{compound_id}"
	jsonMIMEType             = "application/json"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         CatalogResourceURI,
		Name:        "compound_catalog",
		Description: "The compound catalog in service: version, compounds and drug classes.",
		MIMEType:    jsonMIMEType,
	}, s.readCatalog)

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: CompoundResourceTemplate,
		Name:        "compound",
		Description: "A single catalog entry, addressed by compound identifier or alias.",
		MIMEType:    jsonMIMEType,
	}, s.readCompound)
}

func (s *Server) readCatalog(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	catalog := s.services.Catalog.Catalog()
	return jsonResource(req.Params.URI, map[string]any{
		"version":      catalog.Version(),
		"compounds":    catalog.Entries(),
		"drug_classes": catalog.DrugClasses(),
	})
}

func (s *Server) readCompound(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id := strings.TrimPrefix(uri, compoundResourcePrefix)
	entry, ok := s.services.Catalog.Catalog().Lookup(id)
	if !ok || id == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return jsonResource(uri, entry)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding resource %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: jsonMIMEType, Text: string(data)}},
	}, nil
}
