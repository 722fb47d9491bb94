package probe

import (
	"Go2NetBandwidth/internal/model"
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// EncodeSnapshot serializes a snapshot as a protobuf Struct:
//
//	{timestamp: <unix>, hosts: [{ip, internal: {...}, external: {...}}]}
func EncodeSnapshot(snapshot *model.Snapshot) ([]byte, error) {
	hosts := make([]interface{}, 0, len(snapshot.Hosts))
	for _, h := range snapshot.Hosts {
		hosts = append(hosts, map[string]interface{}{
			"ip":       h.Address.String(),
			"internal": summaryToMap(h.Internal),
			"external": summaryToMap(h.External),
		})
	}

	msg, err := structpb.NewStruct(map[string]interface{}{
		"timestamp": snapshot.Timestamp.Unix(),
		"hosts":     hosts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot message: %w", err)
	}
	return proto.Marshal(msg)
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(data []byte) (*model.Snapshot, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("error unmarshalling protobuf: %w", err)
	}

	snapshot := &model.Snapshot{
		Timestamp: time.Unix(int64(msg.Fields["timestamp"].GetNumberValue()), 0),
	}
	for _, v := range msg.Fields["hosts"].GetListValue().GetValues() {
		fields := v.GetStructValue().GetFields()
		addr, err := model.ParseAddr(fields["ip"].GetStringValue())
		if err != nil {
			return nil, err
		}
		snapshot.Hosts = append(snapshot.Hosts, model.HostRecord{
			Address:  addr,
			Internal: summaryFromStruct(fields["internal"].GetStructValue()),
			External: summaryFromStruct(fields["external"].GetStructValue()),
		})
	}
	return snapshot, nil
}

func summaryToMap(s model.TrafficSummary) map[string]interface{} {
	return map[string]interface{}{
		"bytes_sent":     s.BytesSent,
		"bytes_received": s.BytesReceived,
		"packet_count":   s.PacketCount,
		"tcp_bytes":      s.TCPBytes,
		"udp_bytes":      s.UDPBytes,
		"icmp_bytes":     s.ICMPBytes,
	}
}

func summaryFromStruct(s *structpb.Struct) model.TrafficSummary {
	f := s.GetFields()
	return model.TrafficSummary{
		BytesSent:     uint64(f["bytes_sent"].GetNumberValue()),
		BytesReceived: uint64(f["bytes_received"].GetNumberValue()),
		PacketCount:   uint64(f["packet_count"].GetNumberValue()),
		TCPBytes:      uint64(f["tcp_bytes"].GetNumberValue()),
		UDPBytes:      uint64(f["udp_bytes"].GetNumberValue()),
		ICMPBytes:     uint64(f["icmp_bytes"].GetNumberValue()),
	}
}
