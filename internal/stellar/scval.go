package stellar

import (
	"fmt"
	"math/big"

	"github.com/stellar/go-stellar-sdk/strkey"
	"github.com/stellar/go-stellar-sdk/xdr"

	"github.com/stellarpass/stellarpass/internal/contract"
)

// ToScVal marshals a typed contract argument.
func ToScVal(a contract.Arg) (xdr.ScVal, error) {
	switch a.Kind {
	case contract.KindString:
		s := xdr.ScString(a.Text)
		return xdr.ScVal{Type: xdr.ScValTypeScvString, Str: &s}, nil
	case contract.KindSymbol:
		sym := xdr.ScSymbol(a.Text)
		return xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &sym}, nil
	case contract.KindU32:
		u := xdr.Uint32(a.U32)
		return xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &u}, nil
	case contract.KindI128:
		parts := xdr.Int128Parts{Hi: xdr.Int64(a.Int >> 63), Lo: xdr.Uint64(uint64(a.Int))}
		return xdr.ScVal{Type: xdr.ScValTypeScvI128, I128: &parts}, nil
	case contract.KindAddress:
		addr, err := ScAddress(a.Text)
		if err != nil {
			return xdr.ScVal{}, err
		}
		return xdr.ScVal{Type: xdr.ScValTypeScvAddress, Address: &addr}, nil
	default:
		return xdr.ScVal{}, fmt.Errorf("unsupported argument kind %s", a.Kind)
	}
}

// ScAddress converts an account (G...) or contract (C...) strkey.
func ScAddress(s string) (xdr.ScAddress, error) {
	if s == "" {
		return xdr.ScAddress{}, fmt.Errorf("empty address")
	}
	switch s[0] {
	case 'G':
		var id xdr.AccountId
		if err := id.SetAddress(s); err != nil {
			return xdr.ScAddress{}, fmt.Errorf("account address %q: %w", s, err)
		}
		return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeAccount, AccountId: &id}, nil
	case 'C':
		raw, err := strkey.Decode(strkey.VersionByteContract, s)
		if err != nil {
			return xdr.ScAddress{}, fmt.Errorf("contract address %q: %w", s, err)
		}
		var cid xdr.ContractId
		copy(cid[:], raw)
		return xdr.ScAddress{Type: xdr.ScAddressTypeScAddressTypeContract, ContractId: &cid}, nil
	default:
		return xdr.ScAddress{}, fmt.Errorf("unsupported address %q", s)
	}
}

func addressString(a xdr.ScAddress) (string, error) {
	switch a.Type {
	case xdr.ScAddressTypeScAddressTypeAccount:
		if a.AccountId == nil {
			return "", fmt.Errorf("account address without id")
		}
		return a.AccountId.Address(), nil
	case xdr.ScAddressTypeScAddressTypeContract:
		if a.ContractId == nil {
			return "", fmt.Errorf("contract address without id")
		}
		return strkey.Encode(strkey.VersionByteContract, a.ContractId[:])
	default:
		return "", fmt.Errorf("unsupported address type %d", a.Type)
	}
}

// ToNative converts a return value into plain Go values: structs become
// map[string]any keyed by field name, tuples and vectors []any, 128-bit integers
// *big.Int, addresses strkeys.
func ToNative(v xdr.ScVal) (any, error) {
	switch v.Type {
	case xdr.ScValTypeScvVoid:
		return nil, nil
	case xdr.ScValTypeScvBool:
		return bool(*v.B), nil
	case xdr.ScValTypeScvU32:
		return uint32(*v.U32), nil
	case xdr.ScValTypeScvI32:
		return int32(*v.I32), nil
	case xdr.ScValTypeScvU64:
		return uint64(*v.U64), nil
	case xdr.ScValTypeScvI64:
		return int64(*v.I64), nil
	case xdr.ScValTypeScvU128:
		hi := new(big.Int).Lsh(new(big.Int).SetUint64(uint64(v.U128.Hi)), 64)
		return hi.Add(hi, new(big.Int).SetUint64(uint64(v.U128.Lo))), nil
	case xdr.ScValTypeScvI128:
		hi := new(big.Int).Lsh(big.NewInt(int64(v.I128.Hi)), 64)
		return hi.Add(hi, new(big.Int).SetUint64(uint64(v.I128.Lo))), nil
	case xdr.ScValTypeScvString:
		return string(*v.Str), nil
	case xdr.ScValTypeScvSymbol:
		return string(*v.Sym), nil
	case xdr.ScValTypeScvBytes:
		return []byte(*v.Bytes), nil
	case xdr.ScValTypeScvAddress:
		return addressString(*v.Address)
	case xdr.ScValTypeScvVec:
		if v.Vec == nil || *v.Vec == nil {
			return []any{}, nil
		}
		items := **v.Vec
		out := make([]any, 0, len(items))
		for i, item := range items {
			n, err := ToNative(item)
			if err != nil {
				return nil, fmt.Errorf("vec[%d]: %w", i, err)
			}
			out = append(out, n)
		}
		return out, nil
	case xdr.ScValTypeScvMap:
		out := map[string]any{}
		if v.Map == nil || *v.Map == nil {
			return out, nil
		}
		for _, entry := range **v.Map {
			k, err := ToNative(entry.Key)
			if err != nil {
				return nil, fmt.Errorf("map key: %w", err)
			}
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("unsupported map key %T", k)
			}
			val, err := ToNative(entry.Val)
			if err != nil {
				return nil, fmt.Errorf("map[%s]: %w", key, err)
			}
			out[key] = val
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", v.Type)
	}
}
