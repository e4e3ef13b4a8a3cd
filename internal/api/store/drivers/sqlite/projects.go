package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aussiebroadwan/collab/internal/api/domain"
)

type projectsRepo struct {
	db dbtx
}

const projectColumns = `id, title, description, creator_id, image, stage_color, category, roles, website, team_size, stage, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (domain.Project, error) {
	var p domain.Project
	var roles, stage string
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.CreatorID, &p.Image, &p.StageColor,
		&p.Category, &roles, &p.Website, &p.TeamSize, &stage, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Project{}, err
	}
	if err := json.Unmarshal([]byte(roles), &p.Roles); err != nil {
		return domain.Project{}, fmt.Errorf("decode project roles: %w", err)
	}
	p.Stage = domain.Stage(stage)
	return p, nil
}

func encodeRoles(roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	b, err := json.Marshal(roles)
	return string(b), err
}

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	roles, err := encodeRoles(p.Roles)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.CreatorID, p.Image, p.StageColor, p.Category,
		roles, p.Website, p.TeamSize, string(p.Stage), utc(p.CreatedAt), utc(p.UpdatedAt),
	)
	if err != nil {
		return mapConstraint(err)
	}

	return r.setMembers(ctx, p.ID, p.TeamMembers)
}

func (r *projectsRepo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if err != nil {
		return domain.Project{}, mapNotFound(err)
	}

	p.TeamMembers, err = r.members(ctx, p.ID)
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (r *projectsRepo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}

	var out []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Separate pass; the rows above must be closed first when the store is
	// pinned to a single connection.
	for i := range out {
		if out[i].TeamMembers, err = r.members(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *projectsRepo) UpdateProject(ctx context.Context, p domain.Project) error {
	roles, err := encodeRoles(p.Roles)
	if err != nil {
		return err
	}

	err = expectOne(r.db.ExecContext(ctx, `
		UPDATE projects SET
			title = ?, description = ?, image = ?, stage_color = ?, category = ?,
			roles = ?, website = ?, team_size = ?, stage = ?, updated_at = ?
		WHERE id = ?`,
		p.Title, p.Description, p.Image, p.StageColor, p.Category,
		roles, p.Website, p.TeamSize, string(p.Stage), utc(p.UpdatedAt),
		p.ID,
	))
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ?`, p.ID); err != nil {
		return err
	}
	return r.setMembers(ctx, p.ID, p.TeamMembers)
}

func (r *projectsRepo) DeleteProject(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id))
}

func (r *projectsRepo) setMembers(ctx context.Context, projectID string, userIDs []string) error {
	for _, uid := range userIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)`,
			projectID, uid)
		if err != nil {
			return fmt.Errorf("add project member %s: %w", uid, err)
		}
	}
	return nil
}

func (r *projectsRepo) members(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM project_members WHERE project_id = ? ORDER BY user_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

