package catalog

var (
	hardwareVersions = []string{"A1", "A2", "A3", "A4", "A5", "A6"}
	adoptionStates   = []string{"引入中", "已引入", "已退出"}
	lifecycleStates  = []string{"在用", "停产", "禁用"}
)

func commonFields(vendors ...string) []FieldDefinition {
	return []FieldDefinition{
		{Key: "引入状态", Label: "引入状态", ValueType: Enum, AllowedValues: adoptionStates},
		{Key: "状态", Label: "状态", ValueType: Enum, AllowedValues: lifecycleStates},
		{Key: "厂商", Label: "厂商", ValueType: Enum, AllowedValues: vendors},
		{Key: "硬件版本", Label: "硬件版本", ValueType: Enum, AllowedValues: hardwareVersions},
	}
}

func withCommon(vendors []string, fields ...FieldDefinition) []FieldDefinition {
	return append(commonFields(vendors...), fields...)
}

func diskFields(interfaces []string) []FieldDefinition {
	return withCommon([]string{"Samsung", "Intel", "Micron", "Seagate", "WDC", "Toshiba", "Kioxia"},
		FieldDefinition{Key: "容量(GB)", Label: "容量(GB)", ValueType: Numeric},
		FieldDefinition{Key: "盘体尺寸", Label: "盘体尺寸", ValueType: Enum, AllowedValues: []string{"2.5寸", "3.5寸", "M.2", "U.2", "E1.S"}},
		FieldDefinition{Key: "物理接口", Label: "物理接口", ValueType: Enum, AllowedValues: interfaces},
		FieldDefinition{Key: "接口速度(Gb/s)", Label: "接口速度(Gb/s)", ValueType: Numeric},
		FieldDefinition{Key: "顺序读(MB/s)", Label: "顺序读(MB/s)", ValueType: Numeric},
		FieldDefinition{Key: "顺序写(MB/s)", Label: "顺序写(MB/s)", ValueType: Numeric},
		FieldDefinition{Key: "最大功耗(W)", Label: "最大功耗(W)", ValueType: Numeric},
	)
}

var builtinDefinitions = []CategoryDefinition{
	{
		ID:    Memory,
		Label: "内存",
		Fields: withCommon([]string{"Samsung", "SK Hynix", "Micron"},
			FieldDefinition{Key: "容量(GB)", Label: "容量(GB)", ValueType: Numeric},
			FieldDefinition{Key: "Speed(Mbps)", Label: "Speed(Mbps)", ValueType: Numeric},
			FieldDefinition{Key: "ddr", Label: "DDR类型", ValueType: Enum, AllowedValues: []string{"DDR4", "DDR5"}},
			FieldDefinition{Key: "DIMM类型", Label: "DIMM类型", ValueType: Enum, AllowedValues: []string{"RDIMM", "LRDIMM", "UDIMM"}},
			FieldDefinition{Key: "Rank", Label: "Rank", ValueType: Numeric},
			FieldDefinition{Key: "最大功耗(W)", Label: "最大功耗(W)", ValueType: Numeric},
		),
	},
	{
		ID:    NIC,
		Label: "网卡",
		Fields: withCommon([]string{"Mellanox", "Intel", "Broadcom"},
			FieldDefinition{Key: "网卡版本", Label: "网卡版本", ValueType: Enum, AllowedValues: hardwareVersions},
			FieldDefinition{Key: "速率(Gb/s)", Label: "速率(Gb/s)", ValueType: Numeric},
			FieldDefinition{Key: "link类型", Label: "Link类型", ValueType: Enum, AllowedValues: []string{"PCIe 3.0", "PCIe 4.0", "PCIe 5.0"}},
			FieldDefinition{Key: "link宽度", Label: "Link宽度", ValueType: Enum, AllowedValues: []string{"x4", "x8", "x16"}},
			FieldDefinition{Key: "介质类型", Label: "介质类型", ValueType: Enum, AllowedValues: []string{"光", "电"}},
			FieldDefinition{Key: "模块类型", Label: "模块类型", ValueType: Enum, AllowedValues: []string{"SFP+", "SFP28", "QSFP28", "QSFP56", "QSFP112", "RJ45"}},
			FieldDefinition{Key: "电口数量", Label: "电口数量", ValueType: Numeric},
			FieldDefinition{Key: "光口数量", Label: "光口数量", ValueType: Numeric},
			FieldDefinition{Key: "最大功耗(W)", Label: "最大功耗(W)", ValueType: Numeric},
		),
	},
	{ID: HDD, Label: "HDD", Fields: diskFields([]string{"SATA", "SAS"})},
	{ID: SSD, Label: "SSD", Fields: diskFields([]string{"SATA", "SAS"})},
	{ID: NVMe, Label: "NVMe", Fields: diskFields([]string{"PCIe 3.0", "PCIe 4.0", "PCIe 5.0"})},
	{
		ID:    CPU,
		Label: "CPU",
		Fields: withCommon([]string{"Intel", "AMD", "Hygon", "Kunpeng"},
			FieldDefinition{Key: "架构", Label: "架构", ValueType: Enum, AllowedValues: []string{"x86_64", "aarch64"}},
			FieldDefinition{Key: "内核数", Label: "内核数", ValueType: Numeric},
			FieldDefinition{Key: "线程数", Label: "线程数", ValueType: Numeric},
			FieldDefinition{Key: "睿频(GHz)", Label: "睿频(GHz)", ValueType: Numeric},
			FieldDefinition{Key: "基频(GHz)", Label: "基频(GHz)", ValueType: Numeric},
			FieldDefinition{Key: "内存类型", Label: "内存类型", ValueType: Enum, AllowedValues: []string{"DDR4", "DDR5"}},
			FieldDefinition{Key: "最大功耗(W)", Label: "最大功耗(W)", ValueType: Numeric},
		),
	},
	{
		ID:    GPU,
		Label: "GPU",
		Fields: withCommon([]string{"NVIDIA", "AMD", "Huawei"},
			FieldDefinition{Key: "显存容量(GB)", Label: "显存容量(GB)", ValueType: Numeric},
			FieldDefinition{Key: "显存类型", Label: "显存类型", ValueType: Enum, AllowedValues: []string{"GDDR6", "GDDR6X", "HBM2e", "HBM3", "HBM3e"}},
			FieldDefinition{Key: "link类型", Label: "Link类型", ValueType: Enum, AllowedValues: []string{"PCIe 4.0", "PCIe 5.0", "SXM"}},
			FieldDefinition{Key: "link宽度", Label: "Link宽度", ValueType: Enum, AllowedValues: []string{"x8", "x16"}},
			FieldDefinition{Key: "是否带桥接接口", Label: "是否带桥接接口", ValueType: Enum, AllowedValues: []string{"是", "否"}},
			FieldDefinition{Key: "最大功耗(W)", Label: "最大功耗(W)", ValueType: Numeric},
		),
	},
	{
		ID:    RAID,
		Label: "RAID",
		Fields: withCommon([]string{"Broadcom", "Microchip", "Huawei"},
			FieldDefinition{Key: "raid卡类型", Label: "RAID卡类型", ValueType: Enum, AllowedValues: []string{"RAID", "HBA"}},
			FieldDefinition{Key: "支持raid类型", Label: "支持RAID类型", ValueType: Enum, AllowedValues: []string{"RAID0", "RAID1", "RAID5", "RAID6", "RAID10", "RAID50", "RAID60"}},
			FieldDefinition{Key: "接口类型", Label: "接口类型", ValueType: Enum, AllowedValues: []string{"SAS", "SATA", "NVMe"}},
			FieldDefinition{Key: "接口数量", Label: "接口数量", ValueType: Numeric},
			FieldDefinition{Key: "内置盘口", Label: "内置盘口", ValueType: Numeric},
			FieldDefinition{Key: "缓存容量(GB)", Label: "缓存容量(GB)", ValueType: Numeric},
		),
	},
}

var builtin = mustNew(builtinDefinitions)

func mustNew(defs []CategoryDefinition) *Catalog {
	c, err := New(defs)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in hardware catalog.
func Default() *Catalog {
	return builtin
}
