package extract

import "github.com/contextgraph/context-graph/engine/domain"

// responseSchema is appended to every system prompt so the model answers in
// one parseable shape regardless of content type.
const responseSchema = `
Respond with a single JSON object inside a fenced code block:

` + "```json" + `
{
  "entities": [
    {"temp_id": "t1", "name": "...", "type": "<EntityType>", "properties": {}}
  ],
  "relationships": [
    {"source": "t1", "target": "t2", "type": "<RelationshipType>", "properties": {}}
  ]
}
` + "```" + `

Entity types: Module, File, Function, Class, Component, DesignToken, Contract,
Requirement, Person, Concept, Feature, Document, API, Chunk, Client, Project,
Task, Workflow, Agent, Run.
Relationship types: IMPORTS, EXPORTS, CALLS, CONTAINS, EXTENDS, USES, DEFINES,
REQUIRES, REFERENCES, IMPLEMENTS, DEPENDS_ON, RELATED_TO, CREATED_BY, OWNS,
WORKS_ON, MANAGES.
Each temp_id must be unique within your response. Relationships may only
reference temp_ids you emitted. Return empty arrays when nothing applies.`

// prompts select the extraction focus per document content type.
var prompts = map[domain.ContentType]string{
	domain.ContentDesignToken: `You extract design-system knowledge from design token definitions.
Identify every DesignToken (colors, spacing, typography, shadows, radii) with its
value and category in properties, the Components that consume them, and USES /
DEFINES relationships between them.` + responseSchema,

	domain.ContentContract: `You extract API knowledge from interface contracts and schemas.
Identify each API and Contract, the types and fields they DEFINE, the Modules or
Components that IMPLEMENT or DEPEND_ON them, and REQUIRES relationships for
mandatory fields. Record versions and formats in properties.` + responseSchema,

	domain.ContentComponent: `You extract UI architecture from component documentation and source.
Identify Components, their props and variants in properties, the Modules and Files
that CONTAIN them, DesignTokens they USE, and EXTENDS relationships between
component hierarchies.` + responseSchema,

	domain.ContentSpec: `You extract product knowledge from specifications.
Identify Features and Requirements, the Components and APIs that IMPLEMENT them,
Persons and Clients mentioned as stakeholders, and REQUIRES / DEPENDS_ON
relationships between requirements.` + responseSchema,

	domain.ContentNote: `You extract working knowledge from meeting notes and informal documents.
Identify Persons, Projects, Tasks, and Concepts, who WORKS_ON or MANAGES what,
and decisions as Concepts with their rationale in properties.` + responseSchema,

	domain.ContentGeneral: `You extract a knowledge graph from documents.
Identify the significant entities (prefer Concept, Document, Person, Project,
Feature) and the relationships between them. Favour fewer, well-named entities
over exhaustive lists.` + responseSchema,
}

// systemPrompt returns the prompt for a content type, falling back to general.
func systemPrompt(ct domain.ContentType) string {
	if p, ok := prompts[ct]; ok {
		return p
	}
	return prompts[domain.ContentGeneral]
}
