package contentstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/okian/visualverse/internal/domain/content"
)

// Graph layout:
//
//	(:Subject)-[:HAS_COURSE]->(:Course)-[:HAS_CONCEPT]->(:Concept)
//	(:Concept)-[:REQUIRES]->(:Concept)
//
// Timestamps are stored as UnixNano integers so ordering matches MemoryStore.

var constraints = []string{
	"CREATE CONSTRAINT subject_id IF NOT EXISTS FOR (s:Subject) REQUIRE s.id IS UNIQUE",
	"CREATE CONSTRAINT subject_name IF NOT EXISTS FOR (s:Subject) REQUIRE s.name_key IS UNIQUE",
	"CREATE CONSTRAINT course_id IF NOT EXISTS FOR (c:Course) REQUIRE c.id IS UNIQUE",
	"CREATE CONSTRAINT concept_id IF NOT EXISTS FOR (c:Concept) REQUIRE c.id IS UNIQUE",
}

// Neo4jStore implements Store on a Neo4j database.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	now      func() time.Time
}

var _ Store = (*Neo4jStore)(nil)

// Neo4jConfig holds connection settings.
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// NewNeo4jStore connects, verifies connectivity and creates the constraints.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	s := &Neo4jStore{
		driver:   driver,
		database: cfg.Database,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, q := range constraints {
		if err := s.exec(ctx, q, nil); err != nil {
			_ = driver.Close(ctx)
			return nil, fmt.Errorf("neo4j constraints: %w", err)
		}
	}
	return s, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Neo4jStore) exec(ctx context.Context, query string, params map[string]interface{}) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func (s *Neo4jStore) write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, fn)
}

func (s *Neo4jStore) read(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, fn)
}

// collectRecords drains a result.
func collectRecords(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	var out []*neo4j.Record
	for result.Next(ctx) {
		out = append(out, result.Record())
	}
	return out, result.Err()
}

// single returns the only record of query, or nil when there is none.
func single(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]interface{}) (*neo4j.Record, error) {
	recs, err := collectRecords(ctx, tx, query, params)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

func str(r *neo4j.Record, key string) string {
	if v, ok := r.Get(key); ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func i64(r *neo4j.Record, key string) int64 {
	if v, ok := r.Get(key); ok && v != nil {
		if n, ok := v.(int64); ok {
			return n
		}
	}
	return 0
}

func boolean(r *neo4j.Record, key string) bool {
	if v, ok := r.Get(key); ok && v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func strs(r *neo4j.Record, key string) []string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, x := range list {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func nanos(t time.Time) int64     { return t.UnixNano() }
func fromNanos(n int64) time.Time { return time.Unix(0, n).UTC() }

const subjectFields = `s.id AS id, s.name AS name, s.description AS description,
	s.created_at AS created_at, s.updated_at AS updated_at`

const courseFields = `c.id AS id, c.subject_id AS subject_id, c.title AS title,
	c.description AS description, c.level AS level,
	c.created_at AS created_at, c.updated_at AS updated_at`

const conceptFields = `c.id AS id, c.course_id AS course_id, c.name AS name,
	c.summary AS summary, c.domain AS domain, c.render_kind AS render_kind,
	c.tags AS tags, c.created_at AS created_at, c.updated_at AS updated_at`

func subjectFrom(r *neo4j.Record) content.Subject {
	return content.Subject{
		ID:          str(r, "id"),
		Name:        str(r, "name"),
		Description: str(r, "description"),
		CreatedAt:   fromNanos(i64(r, "created_at")),
		UpdatedAt:   fromNanos(i64(r, "updated_at")),
	}
}

func courseFrom(r *neo4j.Record) content.Course {
	return content.Course{
		ID:          str(r, "id"),
		SubjectID:   str(r, "subject_id"),
		Title:       str(r, "title"),
		Description: str(r, "description"),
		Level:       str(r, "level"),
		CreatedAt:   fromNanos(i64(r, "created_at")),
		UpdatedAt:   fromNanos(i64(r, "updated_at")),
	}
}

func conceptFrom(r *neo4j.Record) content.Concept {
	return content.Concept{
		ID:         str(r, "id"),
		CourseID:   str(r, "course_id"),
		Name:       str(r, "name"),
		Summary:    str(r, "summary"),
		Domain:     str(r, "domain"),
		RenderKind: str(r, "render_kind"),
		Tags:       strs(r, "tags"),
		CreatedAt:  fromNanos(i64(r, "created_at")),
		UpdatedAt:  fromNanos(i64(r, "updated_at")),
	}
}

func tagList(tags []string) []interface{} {
	out := make([]interface{}, len(tags))
	for i, t := range tags {
		out[i] = t
	}
	return out
}

// exists reports whether a node with label and id exists.
func exists(ctx context.Context, tx neo4j.ManagedTransaction, label, id string) (bool, error) {
	rec, err := single(ctx, tx, "MATCH (n:"+label+" {id: $id}) RETURN count(n) > 0 AS found", map[string]interface{}{"id": id})
	if err != nil || rec == nil {
		return false, err
	}
	return boolean(rec, "found"), nil
}

// page runs a counted listing. match must bind the listed node as the
// variable used by fields.
func page[T any](ctx context.Context, s *Neo4jStore, match, v, fields string, params map[string]interface{}, req content.PageRequest, conv func(*neo4j.Record) T) (content.Page[T], error) {
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		rec, err := single(ctx, tx, match+" RETURN count("+v+") AS total", params)
		if err != nil {
			return nil, err
		}
		total := 0
		if rec != nil {
			total = int(i64(rec, "total"))
		}
		p := make(map[string]interface{}, len(params)+2)
		for k, val := range params {
			p[k] = val
		}
		p["skip"] = int64(req.Offset())
		p["limit"] = int64(req.PageSize)
		recs, err := collectRecords(ctx, tx, match+" RETURN "+fields+
			" ORDER BY "+v+".created_at, "+v+".id SKIP $skip LIMIT $limit", p)
		if err != nil {
			return nil, err
		}
		items := make([]T, 0, len(recs))
		for _, r := range recs {
			items = append(items, conv(r))
		}
		return content.NewPage(items, req, total), nil
	})
	if err != nil {
		return content.Page[T]{}, err
	}
	return res.(content.Page[T]), nil
}

// CreateSubject implements Store.
func (s *Neo4jStore) CreateSubject(ctx context.Context, in content.Subject) (out content.Subject, err error) {
	defer func(start time.Time) { observe("create_subject", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Subject{}, err
	}
	in.ID = content.NewID()
	in.CreatedAt = s.now()
	in.UpdatedAt = in.CreatedAt
	_, err = s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		rec, err := single(ctx, tx, "MATCH (s:Subject {name_key: $key}) RETURN s.id AS id",
			map[string]interface{}{"key": content.NormalizeName(in.Name)})
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return nil, fmt.Errorf("%w: subject %q exists", content.ErrConflict, in.Name)
		}
		_, err = collectRecords(ctx, tx, `CREATE (s:Subject {id: $id, name: $name, name_key: $key,
			description: $description, created_at: $at, updated_at: $at})`, map[string]interface{}{
			"id":          in.ID,
			"name":        in.Name,
			"key":         content.NormalizeName(in.Name),
			"description": in.Description,
			"at":          nanos(in.CreatedAt),
		})
		return nil, err
	})
	if err != nil {
		return content.Subject{}, err
	}
	return in, nil
}

// GetSubject implements Store.
func (s *Neo4jStore) GetSubject(ctx context.Context, id string) (out content.Subject, err error) {
	defer func(start time.Time) { observe("get_subject", start, err) }(time.Now())
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return single(ctx, tx, "MATCH (s:Subject {id: $id}) RETURN "+subjectFields, map[string]interface{}{"id": id})
	})
	if err != nil {
		return content.Subject{}, err
	}
	rec, _ := res.(*neo4j.Record)
	if rec == nil {
		return content.Subject{}, notFound("subject", id)
	}
	return subjectFrom(rec), nil
}

// ListSubjects implements Store.
func (s *Neo4jStore) ListSubjects(ctx context.Context, req content.PageRequest) (out content.Page[content.Subject], err error) {
	defer func(start time.Time) { observe("list_subjects", start, err) }(time.Now())
	return page(ctx, s, "MATCH (s:Subject)", "s", subjectFields, nil, req, subjectFrom)
}

// UpdateSubject implements Store.
func (s *Neo4jStore) UpdateSubject(ctx context.Context, in content.Subject) (out content.Subject, err error) {
	defer func(start time.Time) { observe("update_subject", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Subject{}, err
	}
	res, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		dup, err := single(ctx, tx, "MATCH (s:Subject {name_key: $key}) WHERE s.id <> $id RETURN s.id AS id",
			map[string]interface{}{"key": content.NormalizeName(in.Name), "id": in.ID})
		if err != nil {
			return nil, err
		}
		if dup != nil {
			return nil, fmt.Errorf("%w: subject %q exists", content.ErrConflict, in.Name)
		}
		return single(ctx, tx, `MATCH (s:Subject {id: $id})
			SET s.name = $name, s.name_key = $key, s.description = $description, s.updated_at = $at
			RETURN `+subjectFields, map[string]interface{}{
			"id":          in.ID,
			"name":        in.Name,
			"key":         content.NormalizeName(in.Name),
			"description": in.Description,
			"at":          nanos(s.now()),
		})
	})
	if err != nil {
		return content.Subject{}, err
	}
	rec, _ := res.(*neo4j.Record)
	if rec == nil {
		return content.Subject{}, notFound("subject", in.ID)
	}
	return subjectFrom(rec), nil
}

// deleteLeaf removes a node that must have no children along rel.
func (s *Neo4jStore) deleteLeaf(ctx context.Context, label, rel, id string) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		found, err := exists(ctx, tx, label, id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, notFound(strings.ToLower(label), id)
		}
		rec, err := single(ctx, tx, "MATCH (n:"+label+" {id: $id})-[:"+rel+"]->(child) RETURN count(child) AS children",
			map[string]interface{}{"id": id})
		if err != nil {
			return nil, err
		}
		if rec != nil && i64(rec, "children") > 0 {
			return nil, fmt.Errorf("%w: %s %s still has %d children", content.ErrConflict, strings.ToLower(label), id, i64(rec, "children"))
		}
		_, err = collectRecords(ctx, tx, "MATCH (n:"+label+" {id: $id}) DETACH DELETE n", map[string]interface{}{"id": id})
		return nil, err
	})
	return err
}

// DeleteSubject implements Store.
func (s *Neo4jStore) DeleteSubject(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_subject", start, err) }(time.Now())
	return s.deleteLeaf(ctx, "Subject", "HAS_COURSE", id)
}

// CreateCourse implements Store.
func (s *Neo4jStore) CreateCourse(ctx context.Context, in content.Course) (out content.Course, err error) {
	defer func(start time.Time) { observe("create_course", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Course{}, err
	}
	in.ID = content.NewID()
	in.CreatedAt = s.now()
	in.UpdatedAt = in.CreatedAt
	res, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return single(ctx, tx, `MATCH (s:Subject {id: $subject_id})
			CREATE (s)-[:HAS_COURSE]->(c:Course {id: $id, subject_id: $subject_id, title: $title,
				description: $description, level: $level, created_at: $at, updated_at: $at})
			RETURN c.id AS id`, map[string]interface{}{
			"id":          in.ID,
			"subject_id":  in.SubjectID,
			"title":       in.Title,
			"description": in.Description,
			"level":       in.Level,
			"at":          nanos(in.CreatedAt),
		})
	})
	if err != nil {
		return content.Course{}, err
	}
	if rec, _ := res.(*neo4j.Record); rec == nil {
		return content.Course{}, notFound("subject", in.SubjectID)
	}
	return in, nil
}

// GetCourse implements Store.
func (s *Neo4jStore) GetCourse(ctx context.Context, id string) (out content.Course, err error) {
	defer func(start time.Time) { observe("get_course", start, err) }(time.Now())
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return single(ctx, tx, "MATCH (c:Course {id: $id}) RETURN "+courseFields, map[string]interface{}{"id": id})
	})
	if err != nil {
		return content.Course{}, err
	}
	rec, _ := res.(*neo4j.Record)
	if rec == nil {
		return content.Course{}, notFound("course", id)
	}
	return courseFrom(rec), nil
}

// ListCourses implements Store.
func (s *Neo4jStore) ListCourses(ctx context.Context, subjectID string, req content.PageRequest) (out content.Page[content.Course], err error) {
	defer func(start time.Time) { observe("list_courses", start, err) }(time.Now())
	if _, err := s.GetSubject(ctx, subjectID); err != nil {
		return content.Page[content.Course]{}, err
	}
	return page(ctx, s, "MATCH (:Subject {id: $parent})-[:HAS_COURSE]->(c:Course)", "c", courseFields,
		map[string]interface{}{"parent": subjectID}, req, courseFrom)
}

// UpdateCourse implements Store.
func (s *Neo4jStore) UpdateCourse(ctx context.Context, in content.Course) (out content.Course, err error) {
	defer func(start time.Time) { observe("update_course", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Course{}, err
	}
	res, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		ok, err := exists(ctx, tx, "Subject", in.SubjectID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFound("subject", in.SubjectID)
		}
		return single(ctx, tx, `MATCH (c:Course {id: $id})
			MATCH (s:Subject {id: $subject_id})
			OPTIONAL MATCH (:Subject)-[old:HAS_COURSE]->(c)
			DELETE old
			MERGE (s)-[:HAS_COURSE]->(c)
			SET c.subject_id = $subject_id, c.title = $title, c.description = $description,
				c.level = $level, c.updated_at = $at
			RETURN `+courseFields, map[string]interface{}{
			"id":          in.ID,
			"subject_id":  in.SubjectID,
			"title":       in.Title,
			"description": in.Description,
			"level":       in.Level,
			"at":          nanos(s.now()),
		})
	})
	if err != nil {
		return content.Course{}, err
	}
	rec, _ := res.(*neo4j.Record)
	if rec == nil {
		return content.Course{}, notFound("course", in.ID)
	}
	return courseFrom(rec), nil
}

// DeleteCourse implements Store.
func (s *Neo4jStore) DeleteCourse(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_course", start, err) }(time.Now())
	return s.deleteLeaf(ctx, "Course", "HAS_CONCEPT", id)
}

// CreateConcept implements Store.
func (s *Neo4jStore) CreateConcept(ctx context.Context, in content.Concept) (out content.Concept, err error) {
	defer func(start time.Time) { observe("create_concept", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Concept{}, err
	}
	in.ID = content.NewID()
	in.CreatedAt = s.now()
	in.UpdatedAt = in.CreatedAt
	res, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return single(ctx, tx, `MATCH (co:Course {id: $course_id})
			CREATE (co)-[:HAS_CONCEPT]->(c:Concept {id: $id, course_id: $course_id, name: $name,
				summary: $summary, domain: $domain, render_kind: $render_kind, tags: $tags,
				created_at: $at, updated_at: $at})
			RETURN c.id AS id`, map[string]interface{}{
			"id":          in.ID,
			"course_id":   in.CourseID,
			"name":        in.Name,
			"summary":     in.Summary,
			"domain":      in.Domain,
			"render_kind": in.RenderKind,
			"tags":        tagList(in.Tags),
			"at":          nanos(in.CreatedAt),
		})
	})
	if err != nil {
		return content.Concept{}, err
	}
	if rec, _ := res.(*neo4j.Record); rec == nil {
		return content.Concept{}, notFound("course", in.CourseID)
	}
	return in, nil
}

// GetConcept implements Store.
func (s *Neo4jStore) GetConcept(ctx context.Context, id string) (out content.Concept, err error) {
	defer func(start time.Time) { observe("get_concept", start, err) }(time.Now())
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return single(ctx, tx, "MATCH (c:Concept {id: $id}) RETURN "+conceptFields, map[string]interface{}{"id": id})
	})
	if err != nil {
		return content.Concept{}, err
	}
	rec, _ := res.(*neo4j.Record)
	if rec == nil {
		return content.Concept{}, notFound("concept", id)
	}
	return conceptFrom(rec), nil
}

// ListConcepts implements Store.
func (s *Neo4jStore) ListConcepts(ctx context.Context, courseID string, req content.PageRequest) (out content.Page[content.Concept], err error) {
	defer func(start time.Time) { observe("list_concepts", start, err) }(time.Now())
	if _, err := s.GetCourse(ctx, courseID); err != nil {
		return content.Page[content.Concept]{}, err
	}
	return page(ctx, s, "MATCH (:Course {id: $parent})-[:HAS_CONCEPT]->(c:Concept)", "c", conceptFields,
		map[string]interface{}{"parent": courseID}, req, conceptFrom)
}

// UpdateConcept implements Store.
func (s *Neo4jStore) UpdateConcept(ctx context.Context, in content.Concept) (out content.Concept, err error) {
	defer func(start time.Time) { observe("update_concept", start, err) }(time.Now())
	if err := content.Validate(in); err != nil {
		return content.Concept{}, err
	}
	res, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		ok, err := exists(ctx, tx, "Course", in.CourseID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, notFound("course", in.CourseID)
		}
		return single(ctx, tx, `MATCH (c:Concept {id: $id})
			MATCH (co:Course {id: $course_id})
			OPTIONAL MATCH (:Course)-[old:HAS_CONCEPT]->(c)
			DELETE old
			MERGE (co)-[:HAS_CONCEPT]->(c)
			SET c.course_id = $course_id, c.name = $name, c.summary = $summary, c.domain = $domain,
				c.render_kind = $render_kind, c.tags = $tags, c.updated_at = $at
			RETURN `+conceptFields, map[string]interface{}{
			"id":          in.ID,
			"course_id":   in.CourseID,
			"name":        in.Name,
			"summary":     in.Summary,
			"domain":      in.Domain,
			"render_kind": in.RenderKind,
			"tags":        tagList(in.Tags),
			"at":          nanos(s.now()),
		})
	})
	if err != nil {
		return content.Concept{}, err
	}
	rec, _ := res.(*neo4j.Record)
	if rec == nil {
		return content.Concept{}, notFound("concept", in.ID)
	}
	return conceptFrom(rec), nil
}

// DeleteConcept implements Store.
func (s *Neo4jStore) DeleteConcept(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { observe("delete_concept", start, err) }(time.Now())
	res, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return single(ctx, tx, `MATCH (c:Concept {id: $id}) DETACH DELETE c RETURN count(*) AS deleted`,
			map[string]interface{}{"id": id})
	})
	if err != nil {
		return err
	}
	if rec, _ := res.(*neo4j.Record); rec == nil || i64(rec, "deleted") == 0 {
		return notFound("concept", id)
	}
	return nil
}

// SearchConcepts implements Store.
func (s *Neo4jStore) SearchConcepts(ctx context.Context, query string, req content.PageRequest) (out content.Page[content.Concept], err error) {
	defer func(start time.Time) { observe("search_concepts", start, err) }(time.Now())
	return page(ctx, s, "MATCH (c:Concept) WHERE toLower(c.name) CONTAINS toLower($q)", "c", conceptFields,
		map[string]interface{}{"q": content.NormalizeName(query)}, req, conceptFrom)
}

// AddPrerequisite implements Store.
func (s *Neo4jStore) AddPrerequisite(ctx context.Context, id, requiresID string) (err error) {
	defer func(start time.Time) { observe("add_prerequisite", start, err) }(time.Now())
	if id == requiresID {
		return fmt.Errorf("%w: %s cannot require itself", content.ErrCycle, id)
	}
	_, err = s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, cid := range []string{id, requiresID} {
			ok, err := exists(ctx, tx, "Concept", cid)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, notFound("concept", cid)
			}
		}
		rec, err := single(ctx, tx, `OPTIONAL MATCH p = (:Concept {id: $requires})-[:REQUIRES*1..]->(:Concept {id: $id})
			RETURN p IS NOT NULL AS cyclic LIMIT 1`, map[string]interface{}{"id": id, "requires": requiresID})
		if err != nil {
			return nil, err
		}
		if rec != nil && boolean(rec, "cyclic") {
			return nil, fmt.Errorf("%w: %s already depends on %s", content.ErrCycle, requiresID, id)
		}
		_, err = collectRecords(ctx, tx, `MATCH (a:Concept {id: $id}), (b:Concept {id: $requires})
			MERGE (a)-[:REQUIRES]->(b)`, map[string]interface{}{"id": id, "requires": requiresID})
		return nil, err
	})
	return err
}

// RemovePrerequisite implements Store.
func (s *Neo4jStore) RemovePrerequisite(ctx context.Context, id, requiresID string) (err error) {
	defer func(start time.Time) { observe("remove_prerequisite", start, err) }(time.Now())
	res, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return single(ctx, tx, `MATCH (:Concept {id: $id})-[r:REQUIRES]->(:Concept {id: $requires})
			DELETE r RETURN count(*) AS deleted`, map[string]interface{}{"id": id, "requires": requiresID})
	})
	if err != nil {
		return err
	}
	if rec, _ := res.(*neo4j.Record); rec == nil || i64(rec, "deleted") == 0 {
		return fmt.Errorf("%w: %s does not require %s", content.ErrNotFound, id, requiresID)
	}
	return nil
}

// Prerequisites implements Store.
func (s *Neo4jStore) Prerequisites(ctx context.Context, id string) (out []content.Concept, err error) {
	defer func(start time.Time) { observe("prerequisites", start, err) }(time.Now())
	if _, err := s.GetConcept(ctx, id); err != nil {
		return nil, err
	}
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return collectRecords(ctx, tx, `MATCH (:Concept {id: $id})-[:REQUIRES]->(c:Concept)
			RETURN `+conceptFields+` ORDER BY c.name, c.id`, map[string]interface{}{"id": id})
	})
	if err != nil {
		return nil, err
	}
	recs, _ := res.([]*neo4j.Record)
	out = make([]content.Concept, 0, len(recs))
	for _, r := range recs {
		out = append(out, conceptFrom(r))
	}
	return out, nil
}

// LearningPath implements Store. The closure is fetched in one query and
// ordered in process.
func (s *Neo4jStore) LearningPath(ctx context.Context, id string) (out []content.Concept, err error) {
	defer func(start time.Time) { observe("learning_path", start, err) }(time.Now())
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return collectRecords(ctx, tx, `MATCH (t:Concept {id: $id})
			OPTIONAL MATCH (t)-[:REQUIRES*1..]->(p:Concept)
			WITH t, collect(DISTINCT p) AS pres
			UNWIND [t] + pres AS c
			OPTIONAL MATCH (c)-[:REQUIRES]->(r:Concept)
			RETURN `+conceptFields+`, collect(r.id) AS requires`, map[string]interface{}{"id": id})
	})
	if err != nil {
		return nil, err
	}
	recs, _ := res.([]*neo4j.Record)
	concepts := make(map[string]content.Concept, len(recs))
	req := make(content.Requires, len(recs))
	for _, r := range recs {
		c := conceptFrom(r)
		concepts[c.ID] = c
		if pres := strs(r, "requires"); len(pres) > 0 {
			req[c.ID] = pres
		}
	}
	return content.LearningPath(id, concepts, req)
}

// Counts implements Store.
func (s *Neo4jStore) Counts(ctx context.Context) (content.Counts, error) {
	res, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return single(ctx, tx, `CALL { MATCH (s:Subject) RETURN count(s) AS subjects }
			CALL { MATCH (c:Course) RETURN count(c) AS courses }
			CALL { MATCH (c:Concept) RETURN count(c) AS concepts }
			CALL { MATCH (:Concept)-[r:REQUIRES]->(:Concept) RETURN count(r) AS prerequisites }
			RETURN subjects, courses, concepts, prerequisites`, nil)
	})
	if err != nil {
		return content.Counts{}, err
	}
	rec, _ := res.(*neo4j.Record)
	if rec == nil {
		return content.Counts{}, nil
	}
	return content.Counts{
		Subjects:      int(i64(rec, "subjects")),
		Courses:       int(i64(rec, "courses")),
		Concepts:      int(i64(rec, "concepts")),
		Prerequisites: int(i64(rec, "prerequisites")),
	}, nil
}

// Close implements Store.
func (s *Neo4jStore) Close(ctx context.Context) error { return s.driver.Close(ctx) }
