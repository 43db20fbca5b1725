// Package domain defines core domain types, constants, and validation for the
// knowledge-graph engine. It acts as the validation gate at API entry points.
package domain

// EntityType is the closed set of node labels the graph accepts.
type EntityType string

const (
	EntityModule      EntityType = "Module"
	EntityFile        EntityType = "File"
	EntityFunction    EntityType = "Function"
	EntityClass       EntityType = "Class"
	EntityComponent   EntityType = "Component"
	EntityDesignToken EntityType = "DesignToken"
	EntityContract    EntityType = "Contract"
	EntityRequirement EntityType = "Requirement"
	EntityPerson      EntityType = "Person"
	EntityConcept     EntityType = "Concept"
	EntityFeature     EntityType = "Feature"
	EntityDocument    EntityType = "Document"
	EntityAPI         EntityType = "API"
	EntityChunk       EntityType = "Chunk"
	EntityClient      EntityType = "Client"
	EntityProject     EntityType = "Project"
	EntityTask        EntityType = "Task"
	EntityWorkflow    EntityType = "Workflow"
	EntityAgent       EntityType = "Agent"
	EntityRun         EntityType = "Run"
)

// ValidEntityTypes is the set of recognised node labels.
var ValidEntityTypes = map[EntityType]bool{
	EntityModule: true, EntityFile: true, EntityFunction: true,
	EntityClass: true, EntityComponent: true, EntityDesignToken: true,
	EntityContract: true, EntityRequirement: true, EntityPerson: true,
	EntityConcept: true, EntityFeature: true, EntityDocument: true,
	EntityAPI: true, EntityChunk: true, EntityClient: true,
	EntityProject: true, EntityTask: true, EntityWorkflow: true,
	EntityAgent: true, EntityRun: true,
}

// RelationshipType is the closed set of edge labels the graph accepts.
type RelationshipType string

const (
	RelImports    RelationshipType = "IMPORTS"
	RelExports    RelationshipType = "EXPORTS"
	RelCalls      RelationshipType = "CALLS"
	RelContains   RelationshipType = "CONTAINS"
	RelExtends    RelationshipType = "EXTENDS"
	RelUses       RelationshipType = "USES"
	RelDefines    RelationshipType = "DEFINES"
	RelRequires   RelationshipType = "REQUIRES"
	RelReferences RelationshipType = "REFERENCES"
	RelImplements RelationshipType = "IMPLEMENTS"
	RelDependsOn  RelationshipType = "DEPENDS_ON"
	RelRelatedTo  RelationshipType = "RELATED_TO"
	RelCreatedBy  RelationshipType = "CREATED_BY"
	RelOwns       RelationshipType = "OWNS"
	RelWorksOn    RelationshipType = "WORKS_ON"
	RelManages    RelationshipType = "MANAGES"
)

// ValidRelationshipTypes is the set of recognised edge labels.
var ValidRelationshipTypes = map[RelationshipType]bool{
	RelImports: true, RelExports: true, RelCalls: true, RelContains: true,
	RelExtends: true, RelUses: true, RelDefines: true, RelRequires: true,
	RelReferences: true, RelImplements: true, RelDependsOn: true,
	RelRelatedTo: true, RelCreatedBy: true, RelOwns: true,
	RelWorksOn: true, RelManages: true,
}

// ContentType classifies documents for chunking and extraction prompting.
type ContentType string

const (
	ContentDesignToken ContentType = "design_token"
	ContentContract    ContentType = "contract"
	ContentComponent   ContentType = "component"
	ContentSpec        ContentType = "spec"
	ContentNote        ContentType = "note"
	ContentGeneral     ContentType = "general"
)

// ValidContentTypes is the set of recognised document content types.
var ValidContentTypes = map[ContentType]bool{
	ContentDesignToken: true, ContentContract: true, ContentComponent: true,
	ContentSpec: true, ContentNote: true, ContentGeneral: true,
}

// Properties is an open property bag attached to entities and relationships.
type Properties map[string]any
