package pg

import "context"

// schema is applied on boot; every statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS age;`,
	`CREATE TABLE IF NOT EXISTS public.projects (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		graph_name TEXT NOT NULL,
		description TEXT,
		settings JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS public.documents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_id UUID NOT NULL REFERENCES public.projects(id) ON DELETE CASCADE,
		filename TEXT,
		content_type TEXT NOT NULL DEFAULT 'general',
		source_url TEXT,
		raw_content TEXT NOT NULL,
		metadata JSONB,
		processed BOOLEAN NOT NULL DEFAULT false,
		processed_at TIMESTAMPTZ,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS public.chunks (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES public.documents(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		chunk_index INT NOT NULL,
		token_count INT NOT NULL,
		vector_point_id TEXT,
		metadata JSONB
	);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_project ON public.documents(project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_document ON public.chunks(document_id);`,
}

// EnsureSchema creates the relational tables the service depends on.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if err := db.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
