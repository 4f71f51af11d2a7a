package control

import (
	"google.golang.org/protobuf/types/known/structpb"

	"procmux/internal/registry"
)

// ProcInfo is the wire view of one supervised process.
type ProcInfo struct {
	Name     string
	Group    string
	State    string
	PID      int
	Restarts int
	ExitCode int
	Exited   bool
	Waiting  []string
}

// InfoFromProc converts a registry record.
func InfoFromProc(p registry.Proc) ProcInfo {
	state := p.State.String()
	if p.Blocked() {
		state = "blocked"
	}
	return ProcInfo{
		Name:     p.Name,
		Group:    p.Group,
		State:    state,
		PID:      p.PID,
		Restarts: p.Restarts,
		ExitCode: p.ExitCode,
		Exited:   p.Exited,
		Waiting:  append([]string(nil), p.Waiting...),
	}
}

func (i ProcInfo) toStruct() (*structpb.Struct, error) {
	waiting := make([]any, len(i.Waiting))
	for k, w := range i.Waiting {
		waiting[k] = w
	}
	return structpb.NewStruct(map[string]any{
		"name":     i.Name,
		"group":    i.Group,
		"state":    i.State,
		"pid":      i.PID,
		"restarts": i.Restarts,
		"exitCode": i.ExitCode,
		"exited":   i.Exited,
		"waiting":  waiting,
	})
}

func infoFromStruct(s *structpb.Struct) ProcInfo {
	f := s.GetFields()
	info := ProcInfo{
		Name:     f["name"].GetStringValue(),
		Group:    f["group"].GetStringValue(),
		State:    f["state"].GetStringValue(),
		PID:      int(f["pid"].GetNumberValue()),
		Restarts: int(f["restarts"].GetNumberValue()),
		ExitCode: int(f["exitCode"].GetNumberValue()),
		Exited:   f["exited"].GetBoolValue(),
	}
	for _, v := range f["waiting"].GetListValue().GetValues() {
		info.Waiting = append(info.Waiting, v.GetStringValue())
	}
	return info
}

// EncodeList packs infos into a ListValue.
func EncodeList(infos []ProcInfo) (*structpb.ListValue, error) {
	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(infos))}
	for _, info := range infos {
		s, err := info.toStruct()
		if err != nil {
			return nil, err
		}
		out.Values = append(out.Values, structpb.NewStructValue(s))
	}
	return out, nil
}

// DecodeList unpacks a List response.
func DecodeList(lv *structpb.ListValue) []ProcInfo {
	out := make([]ProcInfo, 0, len(lv.GetValues()))
	for _, v := range lv.GetValues() {
		if s := v.GetStructValue(); s != nil {
			out = append(out, infoFromStruct(s))
		}
	}
	return out
}
