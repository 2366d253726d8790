package hdock

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrMissingField marks a row whose receptor or ligand column did not
// resolve. The error is per-row: the row is skipped and recorded, the batch
// continues.
var ErrMissingField = errors.New("missing required field")

// ligandAliases are matched in order; the first alias with a non-empty value
// wins.
var ligandAliases = []string{
	"ligand_fasta",
	"ligand_path",
	"ligand_seq",
	"ligand_sequence",
	"ligand_pdb",
	"ligand_file",
	"ligand",
}

var jobNameAliases = []string{"jobname", "name"}

// Batch is the result of normalizing one input table: the specs ready to
// dispatch plus one pre-failed JobResult per rejected row.
type Batch struct {
	Specs   []JobSpec
	Rejects []JobResult
}

// Normalizer turns loosely typed CSV rows into immutable JobSpecs.
type Normalizer struct {
	clock  Clock
	logger *zap.Logger
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(clock Clock, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{clock: clock, logger: logger}
}

// Load reads the whole table. Header matching is case-insensitive and
// unknown columns are ignored. Only an unreadable header or a malformed CSV
// record is fatal; row-level problems become Rejects.
func (n *Normalizer) Load(r io.Reader) (Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Batch{}, fmt.Errorf("read csv header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}

	var batch Batch
	for idx := 1; ; idx++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Batch{}, fmt.Errorf("read csv row %d: %w", idx, err)
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		spec, err := n.normalizeRow(idx, row)
		if err != nil {
			n.logger.Warn("row rejected",
				zap.Int("row", idx),
				zap.Error(err),
			)
			batch.Rejects = append(batch.Rejects, JobResult{
				RowIndex:  idx,
				JobName:   jobName(idx, row),
				Timestamp: n.clock.Now(),
				OK:        false,
				Error:     err.Error(),
			})
			continue
		}
		batch.Specs = append(batch.Specs, spec)
	}
	return batch, nil
}

func (n *Normalizer) normalizeRow(idx int, row map[string]string) (JobSpec, error) {
	receptor := strings.TrimSpace(row["receptor_pdb"])
	if receptor == "" {
		return JobSpec{}, fmt.Errorf("%w: receptor_pdb", ErrMissingField)
	}

	ligandRaw := pick(row, ligandAliases...)
	if ligandRaw == "" {
		return JobSpec{}, fmt.Errorf("%w: ligand (any of %s)", ErrMissingField, strings.Join(ligandAliases, "|"))
	}

	return JobSpec{
		RowIndex:     idx,
		JobName:      jobName(idx, row),
		ReceptorPath: ExpandUser(receptor),
		Ligand:       ClassifyLigand(ligandRaw),
		SiteResidues: n.parseResidues(idx, row["receptor_site_residues"]),
		Email:        pick(row, "email"),
	}, nil
}

// parseResidues splits a comma-separated residue list. A malformed token
// drops the whole site constraint for the row; the job is still attempted
// as whole-receptor docking.
func (n *Normalizer) parseResidues(idx int, raw string) []int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	residues := make([]int, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			n.logger.Warn("malformed residue list, dropping site constraint",
				zap.Int("row", idx),
				zap.String("token", strings.TrimSpace(part)),
			)
			return nil
		}
		residues = append(residues, value)
	}
	return residues
}

// pick returns the first non-empty value among candidate columns.
func pick(row map[string]string, candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(row[c]); v != "" {
			return v
		}
	}
	return ""
}

func jobName(idx int, row map[string]string) string {
	if name := pick(row, jobNameAliases...); name != "" {
		return name
	}
	return fmt.Sprintf("row-%d", idx)
}
