package migration

// getAllMigrations retorna todas as migrações disponíveis
func getAllMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_users_and_projects",
			Up: `
				CREATE TABLE users (
					id UUID PRIMARY KEY,
					email VARCHAR(320) UNIQUE NOT NULL,
					first_name VARCHAR(100) NOT NULL DEFAULT '',
					last_name VARCHAR(100) NOT NULL DEFAULT '',
					type VARCHAR(20) NOT NULL,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					CONSTRAINT chk_user_type CHECK (type IN ('CLIENT', 'INTERNAL'))
				);

				CREATE TABLE projects (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					phase VARCHAR(20) NOT NULL DEFAULT 'DISCOVERY',
					due_date TIMESTAMPTZ NOT NULL,
					weekly_capacity_hours INTEGER,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					updated_at TIMESTAMPTZ DEFAULT NOW(),
					CONSTRAINT chk_phase CHECK (phase IN ('DISCOVERY', 'DESIGN', 'BUILD', 'QA', 'LAUNCH', 'SUPPORT'))
				);

				CREATE TABLE project_members (
					project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(20) NOT NULL,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					PRIMARY KEY (project_id, user_id)
				);
			`,
			Down: `
				DROP TABLE IF EXISTS project_members;
				DROP TABLE IF EXISTS projects;
				DROP TABLE IF EXISTS users;
			`,
		},
		{
			Version: 2,
			Name:    "create_work_tables",
			Up: `
				CREATE TABLE milestones (
					id UUID PRIMARY KEY,
					project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL DEFAULT 'NOT_STARTED',
					order_index INTEGER NOT NULL DEFAULT 0,
					due_date TIMESTAMPTZ,
					client_visible BOOLEAN NOT NULL DEFAULT TRUE,
					requires_client_approval BOOLEAN NOT NULL DEFAULT FALSE,
					approval_status VARCHAR(20),
					approval_notes TEXT,
					approved_by UUID REFERENCES users(id) ON DELETE SET NULL,
					approval_decided_at TIMESTAMPTZ,
					completed_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					updated_at TIMESTAMPTZ DEFAULT NOW(),
					CONSTRAINT chk_approval CHECK ((approval_status IS NOT NULL) = requires_client_approval)
				);

				CREATE TABLE sprints (
					id UUID PRIMARY KEY,
					project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					goal TEXT NOT NULL DEFAULT '',
					start_date TIMESTAMPTZ NOT NULL,
					end_date TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					updated_at TIMESTAMPTZ DEFAULT NOW(),
					CONSTRAINT chk_sprint_window CHECK (end_date = start_date + INTERVAL '14 days')
				);

				CREATE TABLE deliverables (
					id UUID PRIMARY KEY,
					project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					sprint_id UUID REFERENCES sprints(id) ON DELETE SET NULL,
					milestone_id UUID REFERENCES milestones(id) ON DELETE SET NULL,
					assignee_id UUID REFERENCES users(id) ON DELETE SET NULL,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL DEFAULT 'BACKLOG',
					order_index INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					updated_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE TABLE comments (
					id UUID PRIMARY KEY,
					deliverable_id UUID NOT NULL REFERENCES deliverables(id) ON DELETE CASCADE,
					parent_id UUID REFERENCES comments(id) ON DELETE CASCADE,
					author_id UUID NOT NULL REFERENCES users(id),
					body TEXT NOT NULL,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);
			`,
			Down: `
				DROP TABLE IF EXISTS comments;
				DROP TABLE IF EXISTS deliverables;
				DROP TABLE IF EXISTS sprints;
				DROP TABLE IF EXISTS milestones;
			`,
		},
		{
			Version: 3,
			Name:    "create_change_requests",
			Up: `
				CREATE TABLE change_requests (
					id UUID PRIMARY KEY,
					project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					author_id UUID NOT NULL REFERENCES users(id),
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					type VARCHAR(20) NOT NULL DEFAULT 'CHANGE',
					status VARCHAR(20) NOT NULL DEFAULT 'NEW',
					estimate_hours NUMERIC(8,2),
					ai_estimated_hours NUMERIC(8,2),
					estimated_timeline_delay_days INTEGER,
					new_project_due_date TIMESTAMPTZ,
					created_at TIMESTAMPTZ DEFAULT NOW(),
					updated_at TIMESTAMPTZ DEFAULT NOW()
				);
			`,
			Down: `
				DROP TABLE IF EXISTS change_requests;
			`,
		},
		{
			Version: 4,
			Name:    "create_ledger_tables",
			Up: `
				-- Feed append-only: a aplicação nunca executa UPDATE/DELETE aqui
				CREATE TABLE project_updates (
					id UUID PRIMARY KEY,
					project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					type VARCHAR(20) NOT NULL DEFAULT 'GENERAL',
					title VARCHAR(255) NOT NULL DEFAULT '',
					body TEXT NOT NULL,
					author_id UUID REFERENCES users(id) ON DELETE SET NULL,
					client_visible BOOLEAN NOT NULL DEFAULT TRUE,
					source_key VARCHAR(255),
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE TABLE notifications (
					id UUID PRIMARY KEY,
					user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					project_id UUID NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
					update_id UUID REFERENCES project_updates(id) ON DELETE SET NULL,
					title VARCHAR(255) NOT NULL,
					body TEXT NOT NULL DEFAULT '',
					link VARCHAR(500) NOT NULL DEFAULT '',
					read BOOLEAN NOT NULL DEFAULT FALSE,
					read_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);
			`,
			Down: `
				DROP TABLE IF EXISTS notifications;
				DROP TABLE IF EXISTS project_updates;
			`,
		},
		{
			Version: 5,
			Name:    "create_performance_indexes",
			Up: `
				CREATE INDEX idx_members_user ON project_members(user_id);
				CREATE INDEX idx_milestones_project_order ON milestones(project_id, order_index);
				CREATE INDEX idx_sprints_project_start ON sprints(project_id, start_date);
				CREATE INDEX idx_sprints_end ON sprints(end_date);
				CREATE INDEX idx_deliverables_project_status ON deliverables(project_id, status, order_index);
				CREATE INDEX idx_deliverables_sprint ON deliverables(sprint_id);
				CREATE INDEX idx_deliverables_milestone ON deliverables(milestone_id);
				CREATE INDEX idx_comments_deliverable ON comments(deliverable_id, created_at);
				CREATE INDEX idx_change_requests_quota ON change_requests(project_id, author_id, created_at);
				CREATE INDEX idx_updates_project_created ON project_updates(project_id, created_at DESC);
				CREATE INDEX idx_updates_project_type ON project_updates(project_id, type);
				CREATE UNIQUE INDEX idx_updates_source_key ON project_updates(project_id, source_key) WHERE source_key IS NOT NULL;
				CREATE INDEX idx_notifications_user_read ON notifications(user_id, read, created_at DESC);
			`,
			Down: `
				DROP INDEX IF EXISTS idx_notifications_user_read;
				DROP INDEX IF EXISTS idx_updates_source_key;
				DROP INDEX IF EXISTS idx_updates_project_type;
				DROP INDEX IF EXISTS idx_updates_project_created;
				DROP INDEX IF EXISTS idx_change_requests_quota;
				DROP INDEX IF EXISTS idx_comments_deliverable;
				DROP INDEX IF EXISTS idx_deliverables_milestone;
				DROP INDEX IF EXISTS idx_deliverables_sprint;
				DROP INDEX IF EXISTS idx_deliverables_project_status;
				DROP INDEX IF EXISTS idx_sprints_end;
				DROP INDEX IF EXISTS idx_sprints_project_start;
				DROP INDEX IF EXISTS idx_milestones_project_order;
				DROP INDEX IF EXISTS idx_members_user;
			`,
		},
		{
			Version: 6,
			Name:    "sprint_window_in_hours",
			Up: `
				ALTER TABLE sprints DROP CONSTRAINT chk_sprint_window;
				ALTER TABLE sprints ADD CONSTRAINT chk_sprint_window CHECK (end_date = start_date + INTERVAL '336 hours') NOT VALID;
			`,
			Down: `
				ALTER TABLE sprints DROP CONSTRAINT chk_sprint_window;
				ALTER TABLE sprints ADD CONSTRAINT chk_sprint_window CHECK (end_date = start_date + INTERVAL '14 days');
			`,
		},
	}
}
