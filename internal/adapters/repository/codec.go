package repository

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/okian/teamform/internal/domain/model"
)

// codecVersion prefixes every encoded record.
const codecVersion byte = 1

// layout exposes the fields of an entity in a fixed order so that one
// routine can both encode and decode every kind.
type layout struct {
	strs  []*string
	ints  []*int
	bools []*bool
	times []**time.Time
}

func layoutOf(e model.Entity) (layout, error) {
	switch v := e.(type) {
	case *model.Profile:
		return layout{strs: []*string{
			&v.FullName, &v.Skills, &v.PreferredRole, &v.Bio, &v.College, &v.Year,
			&v.Achievements, &v.HackathonParticipation, &v.GithubURL, &v.Availability,
			&v.ExperienceLevel, &v.ProfilePicture,
		}}, nil
	case *model.Project:
		return layout{
			strs: []*string{
				&v.ProjectName, &v.ProjectDescription, &v.ProjectGoals, &v.RequiredSkills,
				&v.HackathonName, &v.ProjectStatus, &v.RoleNeeded, &v.TimeCommitment, &v.ProjectImage,
			},
			ints:  []*int{&v.TeamSize},
			times: []**time.Time{&v.SubmissionDate},
		}, nil
	case *model.Team:
		return layout{
			strs:  []*string{&v.TeamName, &v.Description, &v.Goal, &v.SkillsNeededDescription, &v.TeamLogo},
			ints:  []*int{&v.CurrentTeamSize, &v.MaximumTeamSize},
			bools: []*bool{&v.LookingForMembers},
		}, nil
	case *model.Testimonial:
		return layout{
			strs:  []*string{&v.TestimonialText, &v.AuthorName, &v.AuthorRole, &v.AuthorAvatar},
			ints:  []*int{&v.Rating},
			times: []**time.Time{&v.SubmissionDate},
		}, nil
	}
	return layout{}, fmt.Errorf("%w: %T", ErrInvalidEntity, e)
}

func metaOf(e model.Entity) *model.Meta {
	switch v := e.(type) {
	case *model.Profile:
		return &v.Meta
	case *model.Project:
		return &v.Meta
	case *model.Team:
		return &v.Meta
	case *model.Testimonial:
		return &v.Meta
	}
	return nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Encode serializes an entity with mus-go.
func Encode(e model.Entity) ([]byte, error) {
	l, err := layoutOf(e)
	if err != nil {
		return nil, err
	}
	m := metaOf(e)
	created, updated := unixNano(m.CreatedAt), unixNano(m.UpdatedAt)

	size := 1 + ord.String.Size(m.ID) + varint.Int64.Size(created) + varint.Int64.Size(updated)
	for _, s := range l.strs {
		size += ord.String.Size(*s)
	}
	for _, i := range l.ints {
		size += varint.Int.Size(*i)
	}
	for _, b := range l.bools {
		size += ord.Bool.Size(*b)
	}
	for _, t := range l.times {
		size += ord.Bool.Size(*t != nil)
		if *t != nil {
			size += varint.Int64.Size(unixNano(**t))
		}
	}

	bs := make([]byte, size)
	bs[0] = codecVersion
	n := 1
	n += ord.String.Marshal(m.ID, bs[n:])
	n += varint.Int64.Marshal(created, bs[n:])
	n += varint.Int64.Marshal(updated, bs[n:])
	for _, s := range l.strs {
		n += ord.String.Marshal(*s, bs[n:])
	}
	for _, i := range l.ints {
		n += varint.Int.Marshal(*i, bs[n:])
	}
	for _, b := range l.bools {
		n += ord.Bool.Marshal(*b, bs[n:])
	}
	for _, t := range l.times {
		n += ord.Bool.Marshal(*t != nil, bs[n:])
		if *t != nil {
			n += varint.Int64.Marshal(unixNano(**t), bs[n:])
		}
	}
	return bs[:n], nil
}

// Decode parses bytes produced by Encode into a new entity of the given kind.
func Decode(kind model.Kind, bs []byte) (model.Entity, error) {
	e, err := model.New(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKind, err)
	}
	if len(bs) == 0 || bs[0] != codecVersion {
		return nil, fmt.Errorf("%w: unsupported record version", ErrCorruptRecord)
	}
	l, err := layoutOf(e)
	if err != nil {
		return nil, err
	}
	m := metaOf(e)

	d := decoder{bs: bs, n: 1}
	m.ID = d.readString()
	m.CreatedAt = fromUnixNano(d.readInt64())
	m.UpdatedAt = fromUnixNano(d.readInt64())
	for _, s := range l.strs {
		*s = d.readString()
	}
	for _, i := range l.ints {
		*i = d.readInt()
	}
	for _, b := range l.bools {
		*b = d.readBool()
	}
	for _, t := range l.times {
		if d.readBool() {
			v := fromUnixNano(d.readInt64())
			*t = &v
		}
	}
	if d.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, d.err)
	}
	return e, nil
}

// decoder remembers the first error so the field walk stays linear.
type decoder struct {
	bs  []byte
	n   int
	err error
}

func (d *decoder) readString() (v string) {
	if d.err != nil {
		return
	}
	var m int
	v, m, d.err = ord.String.Unmarshal(d.bs[d.n:])
	d.n += m
	return
}

func (d *decoder) readInt64() (v int64) {
	if d.err != nil {
		return
	}
	var m int
	v, m, d.err = varint.Int64.Unmarshal(d.bs[d.n:])
	d.n += m
	return
}

func (d *decoder) readInt() (v int) {
	if d.err != nil {
		return
	}
	var m int
	v, m, d.err = varint.Int.Unmarshal(d.bs[d.n:])
	d.n += m
	return
}

func (d *decoder) readBool() (v bool) {
	if d.err != nil {
		return
	}
	var m int
	v, m, d.err = ord.Bool.Unmarshal(d.bs[d.n:])
	d.n += m
	return
}
